package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartPlan(t *testing.T) {
	t.Run("splits with remainder in last part", func(t *testing.T) {
		size := int64(17 << 20)
		plan := NewPartPlan(size, 8<<20)

		require.Equal(t, 3, plan.PartCount)
		require.Len(t, plan.Ranges, 3)

		assert.Equal(t, int64(8<<20), plan.Ranges[0].Length)
		assert.Equal(t, int64(8<<20), plan.Ranges[1].Length)
		assert.Equal(t, int64(1<<20), plan.Ranges[2].Length)
	})

	t.Run("exact multiple has no empty tail", func(t *testing.T) {
		plan := NewPartPlan(16<<20, 8<<20)

		require.Equal(t, 2, plan.PartCount)
		assert.Equal(t, int64(8<<20), plan.Ranges[1].Length)
	})

	t.Run("ranges cover the payload exactly", func(t *testing.T) {
		size := int64(100<<20 + 12345)
		plan := NewPartPlan(size, 8<<20)

		var next int64
		for i, pr := range plan.Ranges {
			assert.Equal(t, i+1, pr.Index, "part indexes are 1-based and contiguous")
			assert.Equal(t, next, pr.Offset)
			assert.Positive(t, pr.Length)
			next += pr.Length
		}
		assert.Equal(t, size, next)
	})

	t.Run("non-positive part size falls back to default", func(t *testing.T) {
		plan := NewPartPlan(24<<20, 0)
		assert.Equal(t, int64(8<<20), plan.PartSize)
		assert.Equal(t, 3, plan.PartCount)
	})
}

func TestHasUsableHash(t *testing.T) {
	assert.True(t, ObjectEntry{Fingerprint: "9e107d9d372bb6826bd81d3542a419d6"}.HasUsableHash())
	assert.False(t, ObjectEntry{Fingerprint: ""}.HasUsableHash())
	assert.False(t, ObjectEntry{Fingerprint: "9e107d9d372bb6826bd81d3542a419d6-12"}.HasUsableHash(),
		"multipart etags do not hash the whole payload")
}

func TestSyncPlanTasks(t *testing.T) {
	plan := &SyncPlan{
		Creates: []Task{{Key: "a", Kind: TaskCreate}},
		Updates: []Task{{Key: "b", Kind: TaskUpdate}},
		Deletes: []Task{{Key: "c", Kind: TaskDelete}},
		Skipped: 4,
	}

	assert.Equal(t, 3, plan.TaskCount())
	assert.False(t, plan.Empty())

	tasks := plan.Tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, "a", tasks[0].Key)
	assert.Equal(t, "c", tasks[2].Key)

	assert.True(t, (&SyncPlan{Skipped: 9}).Empty())
}
