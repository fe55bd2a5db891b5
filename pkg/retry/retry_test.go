package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := testConfig().Do(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := testConfig().Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	cause := errors.New("no such bucket")
	attempts := 0
	err := testConfig().Do(context.Background(), func() error {
		attempts++
		return Permanent(cause)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, cause, "the original error comes back unwrapped")
}

func TestDoExhaustsAttempts(t *testing.T) {
	cause := errors.New("still down")
	attempts := 0
	err := testConfig().Do(context.Background(), func() error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestDoHonorsCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 50
	cfg.InitialDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := cfg.Do(ctx, func() error {
		attempts++
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, attempts, 5, "cancellation interrupts the backoff sleep")
}

func TestDoChecksContextBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := testConfig().Do(ctx, func() error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestJitteredStaysWithinBounds(t *testing.T) {
	cfg := Config{Jitter: 0.2}
	base := 100 * time.Millisecond

	for i := 0; i < 100; i++ {
		d := cfg.jittered(base)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}

	assert.Equal(t, base, Config{}.jittered(base), "no jitter configured means no change")
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
