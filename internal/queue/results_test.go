package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdispatch/internal/domain"
)

func finishedRecord(id, group string, success bool, result any) *domain.TaskRecord {
	return &domain.TaskRecord{
		Package: domain.Package{
			ID:      id,
			Name:    "name-" + id,
			Func:    "echo",
			Started: time.Now().UTC().Add(-time.Second),
			Group:   group,
		},
		Stopped: time.Now().UTC(),
		Result:  result,
		Success: success,
	}
}

// finalizeCached routes a record through the monitor's cache path.
func (e *testEnv) finalizeCached(t *testing.T, rec *domain.TaskRecord) {
	t.Helper()
	rec.Cached = Bool(true)
	require.NoError(t, e.client.monitor.Finalize(context.Background(), rec))
}

func TestResultZeroWaitReturnsImmediately(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	start := time.Now()
	res, err := env.client.Result(ctx, "missing", 0, false)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Nil(t, res)
	// A single check, no poll-interval sleep.
	assert.Less(t, elapsed, pollInterval)
}

func TestResultPositiveWaitTimesOut(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	start := time.Now()
	res, err := env.client.Result(ctx, "missing", 40*time.Millisecond, false)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Nil(t, res)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestResultNegativeWaitBlocksUntilAvailable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = env.store.SaveResult(ctx, finishedRecord("late", "", true, "finally"))
	}()

	res, err := env.client.Result(ctx, "late", -1, false)
	require.NoError(t, err)
	assert.Equal(t, "finally", res)
}

func TestResultHonorsContextCancellation(t *testing.T) {
	env := newTestEnv(t, Defaults{Save: true})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := env.client.Result(ctx, "missing", -1, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResultFromCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	env.finalizeCached(t, finishedRecord("c1", "", true, "cached-value"))

	res, err := env.client.Result(ctx, "c1", 0, true)
	require.NoError(t, err)
	assert.Equal(t, "cached-value", res)

	rec, err := env.client.Fetch(ctx, "c1", 0, true)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "c1", rec.ID)
	assert.True(t, rec.Success)
}

func TestFetchAbsent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	rec, err := env.client.Fetch(ctx, "missing", 0, false)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = env.client.Fetch(ctx, "missing", 0, true)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestResultGroupFromStore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	require.NoError(t, env.store.SaveResult(ctx, finishedRecord("t1", "g1", true, 1)))
	require.NoError(t, env.store.SaveResult(ctx, finishedRecord("t2", "g1", false, 2)))
	require.NoError(t, env.store.SaveResult(ctx, finishedRecord("t3", "g1", true, 3)))

	results, err := env.client.ResultGroup(ctx, "g1", false, 0, 0, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{1, 3}, results)

	results, err = env.client.ResultGroup(ctx, "g1", true, 0, 0, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{1, 2, 3}, results)

	recs, err := env.client.FetchGroup(ctx, "g1", true, 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestResultGroupCountGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	require.NoError(t, env.store.SaveResult(ctx, finishedRecord("t1", "g1", true, 1)))

	// Third member arrives while the gate is polling.
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = env.store.SaveResult(ctx, finishedRecord("t2", "g1", true, 2))
		time.Sleep(30 * time.Millisecond)
		_ = env.store.SaveResult(ctx, finishedRecord("t3", "g1", true, 3))
	}()

	results, err := env.client.ResultGroup(ctx, "g1", true, time.Second, 3, false)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestResultGroupCountGateTimesOut(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	require.NoError(t, env.store.SaveResult(ctx, finishedRecord("t1", "g1", true, 1)))

	// Only one of three members ever arrives; after the budget expires the
	// partial data is returned.
	results, err := env.client.ResultGroup(ctx, "g1", true, 50*time.Millisecond, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []any{1}, results)
}

func TestResultGroupFromCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	env.finalizeCached(t, finishedRecord("t1", "g1", true, "a"))
	env.finalizeCached(t, finishedRecord("t2", "g1", false, "b"))

	results, err := env.client.ResultGroup(ctx, "g1", true, 0, 0, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"a", "b"}, results)

	results, err = env.client.ResultGroup(ctx, "g1", false, 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, results)
}

func TestGroupCount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	// Unknown groups count as zero in both modes.
	n, err := env.client.GroupCount(ctx, "nope", false, false)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = env.client.GroupCount(ctx, "nope", false, true)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.finalizeCached(t, finishedRecord("t1", "g1", true, 1))
	env.finalizeCached(t, finishedRecord("t2", "g1", false, 2))

	n, err = env.client.GroupCount(ctx, "g1", false, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	failures, err := env.client.GroupCount(ctx, "g1", true, true)
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
}

func TestDeleteGroupStoreMode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	require.NoError(t, env.store.SaveResult(ctx, finishedRecord("t1", "g1", true, 1)))

	require.NoError(t, env.client.DeleteGroup(ctx, "g1", false, false))

	n, err := env.client.GroupCount(ctx, "g1", false, false)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Members survive without the group label.
	rec, err := env.client.Fetch(ctx, "t1", 0, false)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, rec.Group)

	// With deleteTasks the members go too.
	require.NoError(t, env.store.SaveResult(ctx, finishedRecord("t2", "g2", true, 2)))
	require.NoError(t, env.client.DeleteGroup(ctx, "g2", true, false))
	rec, err = env.client.Fetch(ctx, "t2", 0, false)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteGroupCacheMode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	env.finalizeCached(t, finishedRecord("t1", "g1", true, 1))
	env.finalizeCached(t, finishedRecord("t2", "g1", true, 2))

	require.NoError(t, env.client.DeleteGroup(ctx, "g1", false, true))

	// Cache mode removes members with the index.
	n, err := env.client.GroupCount(ctx, "g1", false, true)
	require.NoError(t, err)
	assert.Zero(t, n)

	rec, err := env.client.Fetch(ctx, "t1", 0, true)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteCached(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	env.finalizeCached(t, finishedRecord("t1", "", true, 1))

	require.NoError(t, env.client.DeleteCached(ctx, "t1"))

	rec, err := env.client.Fetch(ctx, "t1", 0, true)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCorruptCacheEntryPropagatesError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Defaults{Save: true})

	// A tampered payload must surface as an integrity error, never as
	// "absent".
	require.NoError(t, env.broker.Cache().Set(ctx, env.client.keys().task("t1"), []byte("garbage")))

	_, err := env.client.Result(ctx, "t1", 0, true)
	assert.Error(t, err)
}
