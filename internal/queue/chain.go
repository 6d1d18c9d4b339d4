package queue

import (
	"context"

	"qdispatch/internal/broker"
	"qdispatch/internal/domain"
	"qdispatch/internal/identity"
)

// ChainOptions configures a chain submission.
type ChainOptions struct {
	// Group reuses an existing group id; empty generates a fresh one.
	Group string

	// Cached and Sync propagate to every step of the chain.
	Cached *bool
	Sync   *bool

	// Broker overrides the client's broker for this chain.
	Broker broker.Broker
}

// SubmitChain submits the first step of an ordered, dependent sequence and
// returns the chain's group id. The remaining steps travel inside the first
// task's package; whoever finalizes a completed task carrying a non-empty
// chain submits the next step with the same group, cache routing, and sync
// flag (the in-process monitor honors this; so must any external engine).
func (c *Client) SubmitChain(ctx context.Context, steps []domain.Step, opts *ChainOptions) (string, error) {
	if len(steps) == 0 {
		return "", ErrEmptyChain
	}
	if opts == nil {
		opts = &ChainOptions{}
	}

	group := opts.Group
	if group == "" {
		_, group = identity.New()
	}

	head := steps[0]
	rest := append([]domain.Step(nil), steps[1:]...)
	if len(rest) == 0 {
		rest = nil
	}

	o := Options{
		Group:  group,
		Cached: opts.Cached,
		Sync:   opts.Sync,
		Chain:  rest,
		Broker: opts.Broker,
	}
	if _, err := c.Submit(ctx, head.Func, head.Args, head.Kwargs, &o); err != nil {
		return "", err
	}
	return group, nil
}
