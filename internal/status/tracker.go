package status

import (
	"sync"
	"time"

	"github.com/agnesscodex/s4/internal/domain"
)

// Snapshot is the JSON shape served by GET /status.
type Snapshot struct {
	State      string               `json:"state"`
	StartedAt  time.Time            `json:"started_at"`
	Cycles     int                  `json:"cycles"`
	Failures   int                  `json:"failures"`
	Succeeded  int                  `json:"tasks_succeeded"`
	Failed     int                  `json:"tasks_failed"`
	Bytes      int64                `json:"bytes_transferred"`
	LastCycle  *domain.CycleSummary `json:"last_cycle,omitempty"`
	LastError  string               `json:"last_error,omitempty"`
	LastCycled time.Time            `json:"last_cycle_at,omitempty"`
}

// Tracker keeps the watch loop's progress in memory and mirrors it into
// the Prometheus collectors. Safe for concurrent use; the loop writes,
// the HTTP handlers read.
type Tracker struct {
	mu sync.RWMutex

	state     domain.WatchState
	startedAt time.Time

	cycles    int
	failures  int
	succeeded int
	failed    int
	bytes     int64

	lastCycle   *domain.CycleSummary
	lastError   string
	lastCycleAt time.Time
}

// NewTracker returns a tracker marked idle as of now.
func NewTracker() *Tracker {
	return &Tracker{
		state:     domain.WatchIdle,
		startedAt: time.Now(),
	}
}

// SetState records the loop's current state.
func (t *Tracker) SetState(state domain.WatchState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	watchState.Set(float64(state))
}

// RecordCycle folds one finished cycle into the running totals. summary
// may be nil when the cycle failed before planning.
func (t *Tracker) RecordCycle(summary *domain.CycleSummary, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycles++
	t.lastCycleAt = time.Now()
	cyclesTotal.Inc()

	if err != nil {
		t.failures++
		t.lastError = err.Error()
		cycleFailures.Inc()
	} else {
		t.lastError = ""
	}

	if summary == nil {
		return
	}
	t.lastCycle = summary
	t.succeeded += summary.Succeeded
	t.failed += summary.Failed
	t.bytes += summary.Bytes

	tasksTotal.WithLabelValues("succeeded").Add(float64(summary.Succeeded))
	tasksTotal.WithLabelValues("failed").Add(float64(summary.Failed))
	bytesTransferred.Add(float64(summary.Bytes))
}

// Snapshot returns a copy of the current totals.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Snapshot{
		State:      t.state.String(),
		StartedAt:  t.startedAt,
		Cycles:     t.cycles,
		Failures:   t.failures,
		Succeeded:  t.succeeded,
		Failed:     t.failed,
		Bytes:      t.bytes,
		LastCycle:  t.lastCycle,
		LastError:  t.lastError,
		LastCycled: t.lastCycleAt,
	}
}
