package queue

import (
	"context"
	"time"

	"qdispatch/internal/domain"
)

// pollInterval is the fixed sleep between availability checks. Blocking
// retrieval never spins faster than this, and never sleeps at all when the
// data is already there: every loop checks first, then maybe sleeps.
const pollInterval = 10 * time.Millisecond

// poll runs check immediately and then once per pollInterval until it reports
// done, the wait budget is exhausted, or ctx is cancelled.
//
// Wait semantics, shared by every blocking operation:
//
//	wait == 0  check exactly once, never sleep
//	wait < 0   no deadline, poll until the data appears
//	wait > 0   poll until the data appears or elapsed >= wait
//
// Running out of budget is not an error; the caller's captured result simply
// stays absent.
func poll(ctx context.Context, wait time.Duration, check func() (bool, error)) error {
	start := time.Now()
	for {
		done, err := check()
		if err != nil || done {
			return err
		}
		if wait >= 0 && time.Since(start) >= wait {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Result returns the result value of the named task, polling for up to wait.
// Absent (not finished within the budget) is returned as (nil, nil).
func (c *Client) Result(ctx context.Context, taskID string, wait time.Duration, cached bool) (any, error) {
	src := c.source(cached)
	var out any
	err := poll(ctx, wait, func() (bool, error) {
		v, ok, err := src.Result(ctx, taskID)
		if ok {
			out = v
		}
		return ok, err
	})
	return out, err
}

// Fetch returns the full finished record of the named task, polling for up
// to wait. Absent is returned as (nil, nil).
func (c *Client) Fetch(ctx context.Context, taskID string, wait time.Duration, cached bool) (*domain.TaskRecord, error) {
	src := c.source(cached)
	var out *domain.TaskRecord
	err := poll(ctx, wait, func() (bool, error) {
		rec, ok, err := src.Task(ctx, taskID)
		if ok {
			out = rec
		}
		return ok, err
	})
	return out, err
}

// ResultGroup returns the result values of a group's recorded members,
// excluding failed members unless includeFailures is set. Order is
// unspecified: results come back in storage-iteration order, not submission
// order.
//
// A positive count first blocks (under the same wait budget) until the
// group's member count reaches it; retrieval then continues on whatever
// budget remains. Absent is returned as (nil, nil).
func (c *Client) ResultGroup(ctx context.Context, groupID string, includeFailures bool, wait time.Duration, count int, cached bool) ([]any, error) {
	src := c.source(cached)
	wait, err := c.awaitCount(ctx, src, groupID, wait, count)
	if err != nil {
		return nil, err
	}
	var out []any
	err = poll(ctx, wait, func() (bool, error) {
		vals, ok, err := src.GroupResults(ctx, groupID, includeFailures)
		if ok {
			out = vals
		}
		return ok, err
	})
	return out, err
}

// FetchGroup is ResultGroup returning full records instead of result values.
func (c *Client) FetchGroup(ctx context.Context, groupID string, includeFailures bool, wait time.Duration, count int, cached bool) ([]*domain.TaskRecord, error) {
	src := c.source(cached)
	wait, err := c.awaitCount(ctx, src, groupID, wait, count)
	if err != nil {
		return nil, err
	}
	var out []*domain.TaskRecord
	err = poll(ctx, wait, func() (bool, error) {
		recs, ok, err := src.GroupTasks(ctx, groupID, includeFailures)
		if ok {
			out = recs
		}
		return ok, err
	})
	return out, err
}

// awaitCount blocks until the group's member count reaches count, then
// returns the unused share of the wait budget. A non-positive count is no
// constraint at all.
func (c *Client) awaitCount(ctx context.Context, src resultSource, groupID string, wait time.Duration, count int) (time.Duration, error) {
	if count <= 0 {
		return wait, nil
	}
	start := time.Now()
	err := poll(ctx, wait, func() (bool, error) {
		n, _, err := src.GroupCount(ctx, groupID, false)
		return n >= count, err
	})
	if err != nil {
		return 0, err
	}
	if wait >= 0 {
		wait -= time.Since(start)
		if wait < 0 {
			wait = 0
		}
	}
	return wait, nil
}

// GroupCount counts a group's recorded members without blocking; with
// onlyFailures set it counts only failed members. Unknown groups count as
// zero.
func (c *Client) GroupCount(ctx context.Context, groupID string, onlyFailures bool, cached bool) (int, error) {
	n, _, err := c.source(cached).GroupCount(ctx, groupID, onlyFailures)
	return n, err
}

// DeleteGroup removes the group index. In cache mode the member entries go
// with it unconditionally; in durable mode they are removed only when
// deleteTasks is set, otherwise the records stay retrievable by id.
func (c *Client) DeleteGroup(ctx context.Context, groupID string, deleteTasks bool, cached bool) error {
	return c.source(cached).DeleteGroup(ctx, groupID, deleteTasks)
}

// DeleteCached removes a single task's cache entry.
func (c *Client) DeleteCached(ctx context.Context, taskID string) error {
	return c.broker.Cache().Delete(ctx, c.keys().task(taskID))
}
