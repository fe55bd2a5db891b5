package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesscodex/s4/internal/domain"
)

func entry(key, fingerprint string, size int64, modTime time.Time) domain.ObjectEntry {
	return domain.ObjectEntry{
		Key:          key,
		Size:         size,
		Fingerprint:  fingerprint,
		LastModified: modTime,
	}
}

func TestPlannerEmptyDestination(t *testing.T) {
	now := time.Now()
	source := []domain.ObjectEntry{
		entry("a.txt", "aa11", 5, now),
		entry("b.txt", "bb22", 7, now),
	}

	plan := NewPlanner(false, nil, nil).Plan(source, nil)

	require.Len(t, plan.Creates, 2)
	assert.Equal(t, "a.txt", plan.Creates[0].Key)
	assert.Equal(t, "b.txt", plan.Creates[1].Key)
	assert.Equal(t, domain.TaskCreate, plan.Creates[0].Kind)
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Deletes)
	assert.Zero(t, plan.Skipped)
}

func TestPlannerIdenticalSides(t *testing.T) {
	now := time.Now()
	source := []domain.ObjectEntry{
		entry("a.txt", "aa11", 5, now),
		entry("b.txt", "bb22", 7, now),
	}
	dest := []domain.ObjectEntry{
		entry("a.txt", "aa11", 5, now),
		entry("b.txt", "bb22", 7, now),
	}

	plan := NewPlanner(false, nil, nil).Plan(source, dest)

	assert.True(t, plan.Empty())
	assert.Equal(t, 2, plan.Skipped)
}

func TestPlannerMergeJoin(t *testing.T) {
	now := time.Now()
	source := []domain.ObjectEntry{
		entry("a.txt", "aa11", 5, now),
		entry("b.txt", "bb22", 7, now),
		entry("d.txt", "dd44", 9, now),
	}
	dest := []domain.ObjectEntry{
		entry("b.txt", "ffff", 7, now),
		entry("c.txt", "cc33", 3, now),
	}

	plan := NewPlanner(true, nil, nil).Plan(source, dest)

	require.Len(t, plan.Creates, 2)
	assert.Equal(t, "a.txt", plan.Creates[0].Key)
	assert.Equal(t, "d.txt", plan.Creates[1].Key)

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "b.txt", plan.Updates[0].Key)

	require.Len(t, plan.Deletes, 1)
	assert.Equal(t, "c.txt", plan.Deletes[0].Key)
}

func TestPlannerExtraneousWithoutRemove(t *testing.T) {
	dest := []domain.ObjectEntry{
		entry("extraneous.txt", "eeee", 4, time.Now()),
	}

	plan := NewPlanner(false, nil, nil).Plan(nil, dest)

	assert.Empty(t, plan.Deletes)
	assert.Equal(t, 1, plan.Skipped)
}

func TestPlannerExtraneousWithRemove(t *testing.T) {
	dest := []domain.ObjectEntry{
		entry("extraneous.txt", "eeee", 4, time.Now()),
	}

	plan := NewPlanner(true, nil, nil).Plan(nil, dest)

	require.Len(t, plan.Deletes, 1)
	assert.Equal(t, "extraneous.txt", plan.Deletes[0].Key)
	assert.Equal(t, domain.TaskDelete, plan.Deletes[0].Kind)
	assert.Equal(t, 0, plan.Skipped)
}

func TestPlannerDeterministic(t *testing.T) {
	now := time.Now()
	source := []domain.ObjectEntry{
		entry("a.txt", "aa11", 5, now),
		entry("b.txt", "bb22", 7, now),
		entry("c.txt", "cc33", 9, now),
	}
	dest := []domain.ObjectEntry{
		entry("b.txt", "bb22", 7, now),
		entry("z.txt", "zz99", 1, now),
	}

	planner := NewPlanner(true, nil, nil)
	first := planner.Plan(source, dest)
	second := planner.Plan(source, dest)

	assert.Equal(t, first, second)
}

func TestPlannerTaskRefs(t *testing.T) {
	srcRef := func(key string) string { return "src/" + key }
	dstRef := func(key string) string { return "dst/" + key }

	plan := NewPlanner(false, srcRef, dstRef).Plan(
		[]domain.ObjectEntry{entry("a.txt", "aa11", 5, time.Now())}, nil)

	require.Len(t, plan.Creates, 1)
	assert.Equal(t, "src/a.txt", plan.Creates[0].SourceRef)
	assert.Equal(t, "dst/a.txt", plan.Creates[0].DestRef)
}

func TestChanged(t *testing.T) {
	now := time.Now()

	t.Run("size difference wins", func(t *testing.T) {
		assert.True(t, changed(entry("k", "same", 5, now), entry("k", "same", 6, now)))
	})

	t.Run("usable hashes compared case-insensitively", func(t *testing.T) {
		assert.False(t, changed(entry("k", "ABCD", 5, now), entry("k", "abcd", 5, now)))
		assert.True(t, changed(entry("k", "abcd", 5, now), entry("k", "efab", 5, now)))
	})

	t.Run("multipart etag falls back to mod time", func(t *testing.T) {
		multipart := "abcd-3"

		src := entry("k", "abcd", 5, now)
		dst := entry("k", multipart, 5, now.Add(-time.Second))
		assert.False(t, changed(src, dst), "within tolerance is unchanged")

		dst = entry("k", multipart, 5, now.Add(-5*time.Second))
		assert.True(t, changed(src, dst), "source clearly newer means update")

		dst = entry("k", multipart, 5, now.Add(time.Minute))
		assert.False(t, changed(src, dst), "older source never overwrites")
	})
}
