package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config is an explicit retry policy: how many attempts, and how the
// backoff between them grows. Callers pass it around as a value.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultConfig returns the policy used across the codebase unless a
// caller overrides it.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, returns a permanent error, the context is
// cancelled, or attempts run out. The context is checked before every
// attempt and while sleeping between attempts.
func (c Config) Do(ctx context.Context, fn func() error) error {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}

	var lastErr error
	delay := c.InitialDelay

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		lastErr = err
		if attempt == c.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.jittered(delay)):
		}

		delay = time.Duration(float64(delay) * c.Multiplier)
		if c.MaxDelay > 0 && delay > c.MaxDelay {
			delay = c.MaxDelay
		}
	}

	return fmt.Errorf("after %d attempts: %w", c.MaxAttempts, lastErr)
}

func (c Config) jittered(d time.Duration) time.Duration {
	if c.Jitter <= 0 {
		return d
	}
	factor := 1 + c.Jitter*(2*rand.Float64()-1)
	return time.Duration(float64(d) * factor)
}
