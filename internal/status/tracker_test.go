package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesscodex/s4/internal/domain"
)

func TestTrackerStates(t *testing.T) {
	tr := NewTracker()

	snap := tr.Snapshot()
	assert.Equal(t, "idle", snap.State)
	assert.False(t, snap.StartedAt.IsZero())
	assert.Zero(t, snap.Cycles)

	tr.SetState(domain.WatchRunning)
	assert.Equal(t, "running", tr.Snapshot().State)

	tr.SetState(domain.WatchIdle)
	assert.Equal(t, "idle", tr.Snapshot().State)
}

func TestTrackerRecordCycle(t *testing.T) {
	t.Run("successful cycle folds totals", func(t *testing.T) {
		tr := NewTracker()
		tr.RecordCycle(&domain.CycleSummary{Succeeded: 3, Failed: 1, Bytes: 2048}, nil)
		tr.RecordCycle(&domain.CycleSummary{Succeeded: 2, Bytes: 512}, nil)

		snap := tr.Snapshot()
		assert.Equal(t, 2, snap.Cycles)
		assert.Zero(t, snap.Failures)
		assert.Equal(t, 5, snap.Succeeded)
		assert.Equal(t, 1, snap.Failed)
		assert.Equal(t, int64(2560), snap.Bytes)
		require.NotNil(t, snap.LastCycle)
		assert.Equal(t, 2, snap.LastCycle.Succeeded)
		assert.False(t, snap.LastCycled.IsZero())
	})

	t.Run("failed cycle before planning has no summary", func(t *testing.T) {
		tr := NewTracker()
		tr.RecordCycle(nil, errors.New("listing source: connection refused"))

		snap := tr.Snapshot()
		assert.Equal(t, 1, snap.Cycles)
		assert.Equal(t, 1, snap.Failures)
		assert.Contains(t, snap.LastError, "connection refused")
		assert.Nil(t, snap.LastCycle)
		assert.Zero(t, snap.Succeeded)
	})

	t.Run("success clears the last error", func(t *testing.T) {
		tr := NewTracker()
		tr.RecordCycle(nil, errors.New("boom"))
		tr.RecordCycle(&domain.CycleSummary{Succeeded: 1}, nil)

		snap := tr.Snapshot()
		assert.Empty(t, snap.LastError)
		assert.Equal(t, 1, snap.Failures)
		assert.Equal(t, 2, snap.Cycles)
	})
}
