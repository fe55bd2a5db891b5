package sync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/storage"
)

type fakeRecorder struct {
	mu     sync.Mutex
	states []domain.WatchState
	errs   []error
}

func (r *fakeRecorder) SetState(s domain.WatchState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *fakeRecorder) RecordCycle(_ *domain.CycleSummary, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *fakeRecorder) cycles() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *fakeRecorder) seenStates() []domain.WatchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.WatchState(nil), r.states...)
}

func TestWatchRunsFirstCycleImmediately(t *testing.T) {
	src := storage.NewFakeStore("src", domain.OriginLocal)
	dst := storage.NewFakeStore("dst", domain.OriginRemote)
	src.Seed("a.txt", []byte("aaa"), time.Now())

	engine := newTestEngine(src, dst, Options{})
	recorder := &fakeRecorder{}
	loop := NewWatchLoop(engine, time.Hour, recorder, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)

	require.NoError(t, err, "cancellation is a clean stop")
	cycles := recorder.cycles()
	require.Len(t, cycles, 1, "the first cycle does not wait for the interval")
	assert.NoError(t, cycles[0])
	assert.Equal(t, []domain.WatchState{domain.WatchRunning, domain.WatchIdle}, recorder.seenStates())

	_, ok := dst.Data("a.txt")
	assert.True(t, ok)
}

func TestWatchContinuesAfterCycleFailure(t *testing.T) {
	src := storage.NewFakeStore("src", domain.OriginLocal)
	dst := storage.NewFakeStore("dst", domain.OriginRemote)
	src.ListHook = func(int) error { return storage.ErrNotExist }

	engine := newTestEngine(src, dst, Options{})
	recorder := &fakeRecorder{}
	loop := NewWatchLoop(engine, 5*time.Millisecond, recorder, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)

	cycles := recorder.cycles()
	require.GreaterOrEqual(t, len(cycles), 2, "a failed cycle does not end the loop")

	var cycleErr *errs.CycleError
	require.ErrorAs(t, cycles[0], &cycleErr)
	assert.Equal(t, 1, cycleErr.Cycle)

	// The shutdown reports the latest cycle's outcome.
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, len(cycles), cycleErr.Cycle)
}

func TestWatchTimeoutFailureKeepsLoopRunning(t *testing.T) {
	src := storage.NewFakeStore("src", domain.OriginLocal)
	dst := storage.NewFakeStore("dst", domain.OriginRemote)
	src.ListHook = func(int) error {
		return fmt.Errorf("list objects: %w", context.DeadlineExceeded)
	}

	recorder := &fakeRecorder{}
	loop := NewWatchLoop(newTestEngine(src, dst, Options{}), 5*time.Millisecond, recorder, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)

	cycles := recorder.cycles()
	require.GreaterOrEqual(t, len(cycles), 2, "an exhausted call timeout is a cycle failure, not a shutdown")
	var cycleErr *errs.CycleError
	assert.ErrorAs(t, cycles[0], &cycleErr)
	assert.ErrorAs(t, err, &cycleErr)
}

func TestWatchNilRecorder(t *testing.T) {
	src := storage.NewFakeStore("src", domain.OriginLocal)
	dst := storage.NewFakeStore("dst", domain.OriginRemote)

	loop := NewWatchLoop(newTestEngine(src, dst, Options{}), time.Hour, nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, loop.Run(ctx))
}

func TestWatchInFlightCycleFinishesAfterCancellation(t *testing.T) {
	src := storage.NewFakeStore("src", domain.OriginLocal)
	dst := storage.NewFakeStore("dst", domain.OriginRemote)
	src.Seed("a.txt", []byte("aaa"), time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	src.ListHook = func(int) error {
		cancel()
		return nil
	}

	recorder := &fakeRecorder{}
	loop := NewWatchLoop(newTestEngine(src, dst, Options{}), time.Hour, recorder, zerolog.Nop())

	err := loop.Run(ctx)

	require.NoError(t, err)
	cycles := recorder.cycles()
	require.Len(t, cycles, 1, "the running cycle is not cut short")
	assert.NoError(t, cycles[0])

	_, ok := dst.Data("a.txt")
	assert.True(t, ok, "the transfer completed despite the cancellation")
}

func TestWatchChecksCancellationBeforeFirstCycle(t *testing.T) {
	src := storage.NewFakeStore("src", domain.OriginLocal)
	dst := storage.NewFakeStore("dst", domain.OriginRemote)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recorder := &fakeRecorder{}
	loop := NewWatchLoop(newTestEngine(src, dst, Options{}), time.Hour, recorder, zerolog.Nop())

	require.NoError(t, loop.Run(ctx))
	assert.Empty(t, recorder.cycles())
	assert.Zero(t, src.ListCalls)
}

func TestWatchDefaultInterval(t *testing.T) {
	src := storage.NewFakeStore("src", domain.OriginLocal)
	dst := storage.NewFakeStore("dst", domain.OriginRemote)

	loop := NewWatchLoop(newTestEngine(src, dst, Options{}), 0, nil, zerolog.Nop())
	assert.Equal(t, time.Minute, loop.interval)
}
