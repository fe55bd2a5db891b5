package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
)

// Recorder observes watch progress. The status server implements it;
// nopRecorder stands in when no server is running.
type Recorder interface {
	SetState(state domain.WatchState)
	RecordCycle(summary *domain.CycleSummary, err error)
}

type nopRecorder struct{}

func (nopRecorder) SetState(domain.WatchState)              {}
func (nopRecorder) RecordCycle(*domain.CycleSummary, error) {}

// WatchLoop reruns the engine on a fixed interval until its context is
// cancelled. A failed cycle is logged and recorded, never fatal: the
// next tick runs regardless.
type WatchLoop struct {
	engine   *Engine
	interval time.Duration
	recorder Recorder
	log      zerolog.Logger
}

// NewWatchLoop builds a loop around an engine. recorder may be nil.
func NewWatchLoop(engine *Engine, interval time.Duration, recorder Recorder, log zerolog.Logger) *WatchLoop {
	if interval <= 0 {
		interval = time.Minute
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &WatchLoop{
		engine:   engine,
		interval: interval,
		recorder: recorder,
		log:      log,
	}
}

// Run executes the first cycle immediately, then one cycle per interval.
// Cancellation is checked at the cycle boundary only: a cycle already in
// flight runs on a detached context and finishes its transfers before
// the loop notices the shutdown. On shutdown it returns the latest
// cycle's error, so the process exits zero only when that cycle was
// clean.
func (w *WatchLoop) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("watch started")

	cycle := 0
	var lastErr error
	for {
		if ctx.Err() != nil {
			w.log.Info().Int("cycles", cycle).Msg("watch stopped")
			return lastErr
		}

		cycle++
		w.recorder.SetState(domain.WatchRunning)
		w.log.Debug().Int("cycle", cycle).Msg("cycle starting")

		summary, err := w.engine.Run(context.WithoutCancel(ctx))
		if err != nil {
			lastErr = &errs.CycleError{Cycle: cycle, Err: err}
			w.log.Error().Err(lastErr).Msg("cycle failed")
		} else {
			lastErr = nil
		}
		w.recorder.RecordCycle(summary, lastErr)
		w.recorder.SetState(domain.WatchIdle)

		select {
		case <-ctx.Done():
			w.log.Info().Int("cycles", cycle).Msg("watch stopped")
			return lastErr
		case <-time.After(w.interval):
		}
	}
}
