package queue

import (
	"context"
	"fmt"

	"qdispatch/internal/broker"
	"qdispatch/internal/codec"
	"qdispatch/internal/domain"
	"qdispatch/internal/store"
)

// cacheKeys builds the cache key layout:
//
//	<list_key>:<task_id>        one signed finished record
//	<list_key>:<group_id>:keys  signed ordered list of member record keys
//	<list_key>:<group_id>:args  signed snapshot of an iterator's argument sets
type cacheKeys struct {
	prefix string
}

func (k cacheKeys) task(id string) string       { return k.prefix + ":" + id }
func (k cacheKeys) groupKeys(gid string) string { return k.prefix + ":" + gid + ":keys" }
func (k cacheKeys) groupArgs(gid string) string { return k.prefix + ":" + gid + ":args" }

// resultSource is where finished task data is read from. The polling loops
// in results.go are written once against this interface; the cached flag on
// each retrieval call picks which implementation backs it.
//
// The bool return distinguishes "not recorded yet" (keep polling) from a
// present value; errors are transport or integrity failures and always
// propagate.
type resultSource interface {
	Result(ctx context.Context, id string) (any, bool, error)
	Task(ctx context.Context, id string) (*domain.TaskRecord, bool, error)
	GroupResults(ctx context.Context, groupID string, includeFailures bool) ([]any, bool, error)
	GroupTasks(ctx context.Context, groupID string, includeFailures bool) ([]*domain.TaskRecord, bool, error)
	GroupCount(ctx context.Context, groupID string, onlyFailures bool) (int, bool, error)
	DeleteGroup(ctx context.Context, groupID string, deleteTasks bool) error
}

// source returns the store- or cache-backed view per the cached flag.
func (c *Client) source(cached bool) resultSource {
	if cached {
		return &cacheSource{broker: c.broker, signer: c.signer, keys: c.keys()}
	}
	return &storeSource{store: c.store}
}

// storeSource reads from the durable record store.
type storeSource struct {
	store store.Store
}

func (s *storeSource) Result(ctx context.Context, id string) (any, bool, error) {
	v, err := s.store.GetResult(ctx, id)
	if store.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *storeSource) Task(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	rec, err := s.store.GetTask(ctx, id)
	if store.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *storeSource) GroupResults(ctx context.Context, groupID string, includeFailures bool) ([]any, bool, error) {
	vals, err := s.store.GetResultGroup(ctx, groupID, includeFailures)
	if store.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return vals, true, nil
}

func (s *storeSource) GroupTasks(ctx context.Context, groupID string, includeFailures bool) ([]*domain.TaskRecord, bool, error) {
	recs, err := s.store.GetTaskGroup(ctx, groupID, includeFailures)
	if store.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func (s *storeSource) GroupCount(ctx context.Context, groupID string, onlyFailures bool) (int, bool, error) {
	n, err := s.store.GetGroupCount(ctx, groupID, onlyFailures)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *storeSource) DeleteGroup(ctx context.Context, groupID string, deleteTasks bool) error {
	return s.store.DeleteGroup(ctx, groupID, deleteTasks)
}

// cacheSource reads signed records from the broker cache. Every read is
// integrity-checked through the codec before use.
type cacheSource struct {
	broker broker.Broker
	signer *codec.Signer
	keys   cacheKeys
}

func (s *cacheSource) Result(ctx context.Context, id string) (any, bool, error) {
	rec, ok, err := s.Task(ctx, id)
	if !ok || err != nil {
		return nil, false, err
	}
	return rec.Result, true, nil
}

func (s *cacheSource) Task(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	payload, err := s.broker.Cache().Get(ctx, s.keys.task(id))
	if err != nil {
		return nil, false, err
	}
	if payload == nil {
		return nil, false, nil
	}
	var rec domain.TaskRecord
	if err := s.signer.Open(payload, &rec); err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

func (s *cacheSource) GroupResults(ctx context.Context, groupID string, includeFailures bool) ([]any, bool, error) {
	recs, ok, err := s.GroupTasks(ctx, groupID, includeFailures)
	if !ok || err != nil {
		return nil, false, err
	}
	vals := make([]any, 0, len(recs))
	for _, rec := range recs {
		vals = append(vals, rec.Result)
	}
	return vals, true, nil
}

func (s *cacheSource) GroupTasks(ctx context.Context, groupID string, includeFailures bool) ([]*domain.TaskRecord, bool, error) {
	keys, err := s.keyList(ctx, groupID)
	if err != nil {
		return nil, false, err
	}
	if keys == nil {
		return nil, false, nil
	}

	recs := make([]*domain.TaskRecord, 0, len(keys))
	for _, key := range keys {
		payload, err := s.broker.Cache().Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if payload == nil {
			// Member deleted under us; groups are append-only from the
			// monitor but deletes are allowed, so just skip it.
			continue
		}
		var rec domain.TaskRecord
		if err := s.signer.Open(payload, &rec); err != nil {
			return nil, false, err
		}
		if !rec.Success && !includeFailures {
			continue
		}
		recs = append(recs, &rec)
	}
	return recs, true, nil
}

func (s *cacheSource) GroupCount(ctx context.Context, groupID string, onlyFailures bool) (int, bool, error) {
	keys, err := s.keyList(ctx, groupID)
	if err != nil {
		return 0, false, err
	}
	if keys == nil {
		return 0, false, nil
	}
	if !onlyFailures {
		return len(keys), true, nil
	}

	// Failure counting has to open every member record.
	failures := 0
	for _, key := range keys {
		payload, err := s.broker.Cache().Get(ctx, key)
		if err != nil {
			return 0, false, err
		}
		if payload == nil {
			continue
		}
		var rec domain.TaskRecord
		if err := s.signer.Open(payload, &rec); err != nil {
			return 0, false, err
		}
		if !rec.Success {
			failures++
		}
	}
	return failures, true, nil
}

// DeleteGroup removes the group index and its member entries. Cache entries
// are cheap to regenerate, so deleteTasks is effectively always true here.
func (s *cacheSource) DeleteGroup(ctx context.Context, groupID string, deleteTasks bool) error {
	keys, err := s.keyList(ctx, groupID)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := s.broker.Cache().DeleteMany(ctx, keys); err != nil {
			return fmt.Errorf("failed to delete group members: %w", err)
		}
	}
	if err := s.broker.Cache().Delete(ctx, s.keys.groupKeys(groupID)); err != nil {
		return fmt.Errorf("failed to delete group index: %w", err)
	}
	return nil
}

// keyList loads the group's member key list, nil when the group has no
// recorded members.
func (s *cacheSource) keyList(ctx context.Context, groupID string) ([]string, error) {
	payload, err := s.broker.Cache().Get(ctx, s.keys.groupKeys(groupID))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var keys []string
	if err := s.signer.Open(payload, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
