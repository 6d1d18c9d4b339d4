package queue

import (
	"context"
	"time"

	"qdispatch/internal/domain"
)

// Iter is a mutable builder for a fan-out submission: one function, a growing
// sequence of argument sets, then Run. After Run the handle only remembers
// the group id; all authoritative state lives in the broker/store. Appending
// after Run clears the started flag so accessors go absent until the next
// Run — the previous submission keeps running, the handle just forgets it.
//
// Handles are builders, not shared state: use one from a single goroutine.
type Iter struct {
	// Cached and Sync apply to the eventual Run; they default to the
	// client's process-wide defaults.
	Cached bool
	Sync   bool

	client  *Client
	fn      string
	argSets []any
	id      string
	started bool
}

// NewIter creates a fan-out builder for the named function.
func (c *Client) NewIter(fn string) *Iter {
	return &Iter{
		Cached: c.defaults.Cached,
		Sync:   c.defaults.Sync,
		client: c,
		fn:     fn,
	}
}

// Append adds one argument set and returns the new length. Appending to an
// already-run handle resets it to building state.
func (it *Iter) Append(args ...any) int {
	it.argSets = append(it.argSets, args)
	it.started = false
	return len(it.argSets)
}

// Run submits the fan-out and returns the group id.
func (it *Iter) Run(ctx context.Context) (string, error) {
	opts := &Options{Cached: Bool(it.Cached), Sync: Bool(it.Sync)}
	id, err := it.client.SubmitIter(ctx, it.fn, it.argSets, opts)
	if err != nil {
		return "", err
	}
	it.id = id
	it.started = true
	return id, nil
}

// Result returns the collated result list of the run, polling for up to
// wait. Absent until every member has completed; always absent on a handle
// that hasn't been run.
func (it *Iter) Result(ctx context.Context, wait time.Duration) (any, error) {
	if !it.started {
		return nil, nil
	}
	return it.client.Result(ctx, it.id, wait, it.Cached)
}

// Fetch returns the collated task record of the run, with the same absence
// rules as Result.
func (it *Iter) Fetch(ctx context.Context, wait time.Duration) (*domain.TaskRecord, error) {
	if !it.started {
		return nil, nil
	}
	return it.client.Fetch(ctx, it.id, wait, it.Cached)
}

// Length returns the number of argument sets collected so far.
func (it *Iter) Length() int {
	return len(it.argSets)
}

// Chain is a mutable builder for an ordered, dependent task sequence.
// Appending to an already-run handle deletes the superseded run's group data
// first, so stale results can't leak into a later Result call, then resets
// to building state. The group id is allocated on the first Run and reused
// by subsequent Runs.
type Chain struct {
	// Cached and Sync apply to every step; they default to the client's
	// process-wide defaults.
	Cached bool
	Sync   bool

	client  *Client
	steps   []domain.Step
	group   string
	started bool
}

// NewChain creates an empty chain builder.
func (c *Client) NewChain() *Chain {
	return &Chain{
		Cached: c.defaults.Cached,
		Sync:   c.defaults.Sync,
		client: c,
	}
}

// Append adds a step and returns the new length. On an already-run handle it
// first removes the superseded run's group data.
func (ch *Chain) Append(ctx context.Context, fn string, args []any, kwargs map[string]any) (int, error) {
	if ch.started {
		if err := ch.client.DeleteGroup(ctx, ch.group, false, ch.Cached); err != nil {
			return 0, err
		}
		ch.started = false
	}
	ch.steps = append(ch.steps, domain.Step{Func: fn, Args: args, Kwargs: kwargs})
	return len(ch.steps), nil
}

// Run submits the chain and returns its group id. The coordinator consumes
// the head of the sequence it is given, so Run hands it a copy and the
// builder keeps its full step list for a later re-run.
func (ch *Chain) Run(ctx context.Context) (string, error) {
	steps := append([]domain.Step(nil), ch.steps...)
	group, err := ch.client.SubmitChain(ctx, steps, &ChainOptions{
		Group:  ch.group,
		Cached: Bool(ch.Cached),
		Sync:   Bool(ch.Sync),
	})
	if err != nil {
		return "", err
	}
	ch.group = group
	ch.started = true
	return group, nil
}

// Result returns the results of every step, polling for up to wait; it
// blocks until all steps have recorded (count == Length). Always absent on a
// handle that hasn't been run.
func (ch *Chain) Result(ctx context.Context, wait time.Duration) ([]any, error) {
	if !ch.started {
		return nil, nil
	}
	return ch.client.ResultGroup(ctx, ch.group, false, wait, ch.Length(), ch.Cached)
}

// Fetch returns the full records of every step, with the same blocking and
// absence rules as Result.
func (ch *Chain) Fetch(ctx context.Context, includeFailures bool, wait time.Duration) ([]*domain.TaskRecord, error) {
	if !ch.started {
		return nil, nil
	}
	return ch.client.FetchGroup(ctx, ch.group, includeFailures, wait, ch.Length(), ch.Cached)
}

// Current reports how many steps have completed, a best-effort proxy for the
// index of the currently executing step. ok is false on a handle that hasn't
// been run.
func (ch *Chain) Current(ctx context.Context) (n int, ok bool, err error) {
	if !ch.started {
		return 0, false, nil
	}
	n, err = ch.client.GroupCount(ctx, ch.group, false, ch.Cached)
	return n, err == nil, err
}

// Length returns the number of steps collected so far.
func (ch *Chain) Length() int {
	return len(ch.steps)
}
