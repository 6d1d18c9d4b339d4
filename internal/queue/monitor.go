package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"qdispatch/internal/domain"
)

// Monitor finalizes finished task records: it persists them to the durable
// store or the broker cache, maintains cache group indexes, collates
// completed iterator groups, submits the next chain step, and runs hooks.
//
// Cache group-index maintenance is a read-modify-write; the monitor
// serializes it within the process. Deployments with multiple finalizing
// processes against one cache need a cache with an atomic list append.
type Monitor struct {
	client *Client
	logger *slog.Logger

	mu sync.Mutex // guards cache group-index read-modify-write
}

func newMonitor(c *Client) *Monitor {
	return &Monitor{
		client: c,
		logger: c.logger.With(slog.String("component", "monitor")),
	}
}

// Finalize records a finished task and triggers whatever the package asked
// for next. Storage and transport failures propagate; a failed hook or an
// unknown hook name only logs, matching execution failures never being
// errors at this layer.
func (m *Monitor) Finalize(ctx context.Context, rec *domain.TaskRecord) error {
	if rec.IsCached() {
		if err := m.saveCached(ctx, rec); err != nil {
			return err
		}
	} else if m.shouldSave(rec) {
		if err := m.client.store.SaveResult(ctx, rec); err != nil {
			return fmt.Errorf("failed to save task record: %w", err)
		}
	}

	// A failed step breaks its chain: successors are never submitted.
	if rec.Success && len(rec.Chain) > 0 {
		_, err := m.client.SubmitChain(ctx, rec.Chain, &ChainOptions{
			Group:  rec.Group,
			Cached: rec.Cached,
			Sync:   rec.Sync,
		})
		if err != nil {
			return fmt.Errorf("failed to submit next chain step: %w", err)
		}
	}

	if rec.Hook != "" {
		if hook, ok := m.client.registry.ResolveHook(rec.Hook); ok {
			hook(ctx, rec)
		} else {
			m.logger.Warn("unknown hook", "hook", rec.Hook, "task_id", rec.ID)
		}
	}

	m.logger.Debug("finalized task",
		"task_id", rec.ID,
		"task_name", rec.Name,
		"success", rec.Success,
		"cached", rec.IsCached())
	return nil
}

func (m *Monitor) shouldSave(rec *domain.TaskRecord) bool {
	if rec.Save != nil {
		return *rec.Save
	}
	return m.client.defaults.Save
}

// saveCached writes the record into the broker cache and, for grouped tasks,
// appends it to the group's key list. Completion of the last member of an
// iterator group collates the whole group instead.
func (m *Monitor) saveCached(ctx context.Context, rec *domain.TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCachedLocked(ctx, rec)
}

func (m *Monitor) saveCachedLocked(ctx context.Context, rec *domain.TaskRecord) error {
	cache := m.client.broker.Cache()
	keys := m.client.keys()
	taskKey := keys.task(rec.ID)

	// The record always lands before the group index references it: the
	// key-list length must never exceed the number of recorded members, or a
	// count-gated reader released by the index would come up short resolving
	// the listed keys.
	signed, err := m.client.signer.Sign(rec)
	if err != nil {
		return fmt.Errorf("failed to sign task record: %w", err)
	}
	if err := cache.Set(ctx, taskKey, signed); err != nil {
		return fmt.Errorf("failed to cache task record: %w", err)
	}

	if rec.Group == "" {
		return nil
	}

	src := &cacheSource{broker: m.client.broker, signer: m.client.signer, keys: keys}
	list, err := src.keyList(ctx, rec.Group)
	if err != nil {
		return err
	}

	if rec.IterCount > 0 && len(list) == rec.IterCount-1 {
		return m.collateIter(ctx, rec, list)
	}

	signedList, err := m.client.signer.Sign(append(list, taskKey))
	if err != nil {
		return fmt.Errorf("failed to sign group index: %w", err)
	}
	if err := cache.Set(ctx, keys.groupKeys(rec.Group), signedList); err != nil {
		return fmt.Errorf("failed to update group index: %w", err)
	}
	return nil
}

// collateIter folds a completed iterator group into a single record keyed by
// the group id: results of every member (in recording order) plus the
// just-finished one, with the original argument sequence restored from the
// snapshot. The collated record is routed per the caller's preserved cache
// preference, then the member entries (the just-finished one included) and
// the group index are dropped.
func (m *Monitor) collateIter(ctx context.Context, rec *domain.TaskRecord, memberKeys []string) error {
	cache := m.client.broker.Cache()
	keys := m.client.keys()

	results := make([]any, 0, len(memberKeys)+1)
	for _, key := range memberKeys {
		payload, err := cache.Get(ctx, key)
		if err != nil {
			return err
		}
		if payload == nil {
			continue
		}
		var member domain.TaskRecord
		if err := m.client.signer.Open(payload, &member); err != nil {
			return err
		}
		results = append(results, member.Result)
	}
	results = append(results, rec.Result)

	collated := *rec
	collated.ID = rec.Group
	collated.Result = results
	collated.Group = ""
	collated.IterCount = 0
	collated.IterCached = nil

	// The args snapshot survives for inspection; the collated record carries
	// the full sequence in place of the last member's arguments.
	if payload, err := cache.Get(ctx, keys.groupArgs(rec.Group)); err != nil {
		return err
	} else if payload != nil {
		var args []any
		if err := m.client.signer.Open(payload, &args); err != nil {
			return err
		}
		collated.Args = args
	}

	if rec.IterCached != nil && *rec.IterCached {
		collated.Cached = Bool(true)
		if err := m.saveCachedLocked(ctx, &collated); err != nil {
			return err
		}
	} else {
		collated.Cached = nil
		if err := m.client.store.SaveResult(ctx, &collated); err != nil {
			return fmt.Errorf("failed to save collated record: %w", err)
		}
	}

	members := append(append([]string(nil), memberKeys...), keys.task(rec.ID))
	if err := cache.DeleteMany(ctx, members); err != nil {
		return fmt.Errorf("failed to delete collated members: %w", err)
	}
	if err := cache.Delete(ctx, keys.groupKeys(rec.Group)); err != nil {
		return fmt.Errorf("failed to delete collated group index: %w", err)
	}

	m.logger.Debug("collated iterator group", "group_id", rec.Group, "members", len(results))
	return nil
}
