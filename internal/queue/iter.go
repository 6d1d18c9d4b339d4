package queue

import (
	"context"
	"fmt"

	"qdispatch/internal/identity"
)

// SubmitIter fans one function out over a sequence of argument sets and
// returns the new group id once every member is submitted (submission, not
// completion). Each element of argSets is one call's positional arguments;
// a bare value is treated as a one-element argument list.
//
// Fan-out bookkeeping always rides the cache: members are forced cached, and
// the caller's own cache preference is preserved as iter_cached so the
// collated result lands where the caller asked. The full argument sequence
// is snapshotted under <list_key>:<group>:args for inspection and
// resubmission.
func (c *Client) SubmitIter(ctx context.Context, fn string, argSets []any, opts *Options) (string, error) {
	if fn == "" {
		return "", ErrMissingFunc
	}
	if len(argSets) == 0 {
		return "", ErrNoArgSets
	}

	_, group := identity.New()
	b := c.brokerFor(opts)

	snapshot, err := c.signer.Sign(argSets)
	if err != nil {
		return "", fmt.Errorf("failed to sign argument snapshot: %w", err)
	}
	if err := b.Cache().Set(ctx, c.keys().groupArgs(group), snapshot); err != nil {
		return "", fmt.Errorf("failed to cache argument snapshot: %w", err)
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	// Hooks don't apply to individual members.
	o.Hook = ""
	o.Group = group
	o.IterCount = len(argSets)

	cached := c.defaults.Cached
	if o.Cached != nil {
		cached = *o.Cached
	}
	if cached {
		o.IterCached = Bool(true)
	}
	o.Cached = Bool(true)

	for _, set := range argSets {
		if _, err := c.Submit(ctx, fn, normalizeArgSet(set), nil, &o); err != nil {
			return "", err
		}
	}
	c.logger.Debug("pushed iterator group", "group_id", group, "func", fn, "members", len(argSets))
	return group, nil
}

// normalizeArgSet coerces one element of an argument-set sequence into a
// positional argument list.
func normalizeArgSet(v any) []any {
	if args, ok := v.([]any); ok {
		return args
	}
	return []any{v}
}
