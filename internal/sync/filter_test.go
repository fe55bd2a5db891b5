package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
)

func TestFiltersExcludeGlob(t *testing.T) {
	filters, err := NewFilters([]string{"*.tmp"}, "", "")
	require.NoError(t, err)

	now := time.Now()
	entries := []domain.ObjectEntry{
		entry("cache.tmp", "", 1, now),
		entry("docs/readme.md", "", 2, now),
		entry("logs/app.tmp", "", 3, now),
	}

	kept := filters.Apply(entries)

	require.Len(t, kept, 1)
	assert.Equal(t, "docs/readme.md", kept[0].Key, "a slashless glob reaches into subdirectories")
}

func TestFiltersGlobWithSlashMatchesFullKeyOnly(t *testing.T) {
	filters, err := NewFilters([]string{"logs/*"}, "", "")
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, filters.Excluded(entry("logs/app.log", "", 1, now)))
	assert.False(t, filters.Excluded(entry("app.log", "", 1, now)))
	assert.False(t, filters.Excluded(entry("logs/2026/app.log", "", 1, now)),
		"path.Match does not cross separators")
}

func TestFiltersQuestionMarkGlob(t *testing.T) {
	filters, err := NewFilters([]string{"report-?.csv"}, "", "")
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, filters.Excluded(entry("report-1.csv", "", 1, now)))
	assert.False(t, filters.Excluded(entry("report-10.csv", "", 1, now)))
}

func TestFiltersInvalidGlobFailsFast(t *testing.T) {
	_, err := NewFilters([]string{"[unclosed"}, "", "")

	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
}

func TestFiltersAgeBounds(t *testing.T) {
	now := time.Now()

	t.Run("older-than drops entries too young", func(t *testing.T) {
		filters, err := NewFilters(nil, "365d", "")
		require.NoError(t, err)
		filters.now = func() time.Time { return now }

		old := entry("archive.log", "", 1, now.Add(-366*24*time.Hour))
		young := entry("today.log", "", 1, now.Add(-10*24*time.Hour))

		assert.False(t, filters.Excluded(old))
		assert.True(t, filters.Excluded(young))
	})

	t.Run("newer-than drops entries too old", func(t *testing.T) {
		filters, err := NewFilters(nil, "", "48h")
		require.NoError(t, err)
		filters.now = func() time.Time { return now }

		recent := entry("fresh.log", "", 1, now.Add(-time.Hour))
		stale := entry("old.log", "", 1, now.Add(-72*time.Hour))

		assert.False(t, filters.Excluded(recent))
		assert.True(t, filters.Excluded(stale))
	})

	t.Run("the bound an entry fails flips with the flag", func(t *testing.T) {
		moments := entry("new.log", "", 1, now.Add(-time.Minute))

		older, err := NewFilters(nil, "365d", "")
		require.NoError(t, err)
		older.now = func() time.Time { return now }
		assert.True(t, older.Excluded(moments))

		newer, err := NewFilters(nil, "", "365d")
		require.NoError(t, err)
		newer.now = func() time.Time { return now }
		assert.False(t, newer.Excluded(moments))
	})

	t.Run("bounds combine as AND", func(t *testing.T) {
		filters, err := NewFilters(nil, "24h", "96h")
		require.NoError(t, err)
		filters.now = func() time.Time { return now }

		assert.False(t, filters.Excluded(entry("mid.log", "", 1, now.Add(-48*time.Hour))))
		assert.True(t, filters.Excluded(entry("young.log", "", 1, now.Add(-time.Hour))))
		assert.True(t, filters.Excluded(entry("ancient.log", "", 1, now.Add(-200*time.Hour))))
	})
}

func TestFiltersInvalidDurationFailsFast(t *testing.T) {
	for _, value := range []string{"bogus", "12x", "-3d", "-1h"} {
		_, err := NewFilters(nil, value, "")
		require.Error(t, err, value)
		assert.True(t, errs.IsConfig(err), value)
	}
}

func TestFiltersNoConfiguredPredicates(t *testing.T) {
	filters, err := NewFilters(nil, "", "")
	require.NoError(t, err)

	entries := []domain.ObjectEntry{entry("a", "", 1, time.Now())}
	assert.Equal(t, entries, filters.Apply(entries))
}
