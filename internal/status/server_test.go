package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesscodex/s4/internal/domain"
)

func TestStatusRoutes(t *testing.T) {
	tracker := NewTracker()
	tracker.SetState(domain.WatchRunning)
	tracker.RecordCycle(&domain.CycleSummary{Creates: 2, Succeeded: 2, Bytes: 1024}, nil)
	router := NewRouter(tracker)

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("status snapshot", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var snap Snapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, "running", snap.State)
		assert.Equal(t, 1, snap.Cycles)
		assert.Equal(t, int64(1024), snap.Bytes)
		require.NotNil(t, snap.LastCycle)
		assert.Equal(t, 2, snap.LastCycle.Creates)
	})

	t.Run("metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "s4_watch_cycles_total")
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
