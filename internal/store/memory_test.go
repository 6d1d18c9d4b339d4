package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdispatch/internal/domain"
)

func record(id, group string, success bool, result any) *domain.TaskRecord {
	return &domain.TaskRecord{
		Package: domain.Package{
			ID:      id,
			Name:    "name-" + id,
			Func:    "test.fn",
			Started: time.Now().Add(-time.Second),
			Group:   group,
		},
		Stopped: time.Now(),
		Result:  result,
		Success: success,
	}
}

func TestMemoryTaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.True(t, IsNotFoundError(err))

	require.NoError(t, m.SaveResult(ctx, record("t1", "", true, "ok")))

	res, err := m.GetResult(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "ok", res)

	rec, err := m.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", rec.ID)
	assert.True(t, rec.Success)
}

func TestMemoryGroups(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveResult(ctx, record("t1", "g1", true, 1)))
	require.NoError(t, m.SaveResult(ctx, record("t2", "g1", false, 2)))
	require.NoError(t, m.SaveResult(ctx, record("t3", "g1", true, 3)))

	// Successes only by default.
	results, err := m.GetResultGroup(ctx, "g1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{1, 3}, results)

	results, err = m.GetResultGroup(ctx, "g1", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{1, 2, 3}, results)

	recs, err := m.GetTaskGroup(ctx, "g1", true)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	count, err := m.GetGroupCount(ctx, "g1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	failures, err := m.GetGroupCount(ctx, "g1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, failures)

	_, err = m.GetResultGroup(ctx, "unknown", true)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestMemoryDeleteGroupKeepsTasks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveResult(ctx, record("t1", "g1", true, 1)))
	require.NoError(t, m.DeleteGroup(ctx, "g1", false))

	count, err := m.GetGroupCount(ctx, "g1", false)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Record survives, ungrouped.
	rec, err := m.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, rec.Group)
}

func TestMemoryDeleteGroupWithTasks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveResult(ctx, record("t1", "g1", true, 1)))
	require.NoError(t, m.DeleteGroup(ctx, "g1", true))

	_, err := m.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMemorySchedules(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s := &domain.Schedule{ID: "s1", Func: "test.fn", Type: domain.ScheduleDaily, Repeats: -1}
	require.NoError(t, m.SaveSchedule(ctx, s))

	got, err := m.GetSchedule(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleDaily, got.Type)

	_, err = m.GetSchedule(ctx, "missing")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}
