package store

import (
	"context"
	"sync"

	"qdispatch/internal/domain"
)

// Memory is an in-process Store used by tests and single-process deployments
// that don't need durability across restarts.
type Memory struct {
	mu        sync.RWMutex
	tasks     map[string]*domain.TaskRecord
	groups    map[string][]string // group id -> member task ids, insertion order
	schedules map[string]*domain.Schedule
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tasks:     make(map[string]*domain.TaskRecord),
		groups:    make(map[string][]string),
		schedules: make(map[string]*domain.Schedule),
	}
}

// SaveResult persists a finished task record, indexing it under its group
// when it has one.
func (m *Memory) SaveResult(ctx context.Context, rec *domain.TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	_, existed := m.tasks[rec.ID]
	m.tasks[rec.ID] = &cp
	if rec.Group != "" && !existed {
		m.groups[rec.Group] = append(m.groups[rec.Group], rec.ID)
	}
	return nil
}

// GetResult returns the result value of a finished task.
func (m *Memory) GetResult(ctx context.Context, id string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return rec.Result, nil
}

// GetTask returns the full finished record.
func (m *Memory) GetTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetResultGroup returns the result values of a group's recorded members.
func (m *Memory) GetResultGroup(ctx context.Context, groupID string, includeFailures bool) ([]any, error) {
	recs, err := m.GetTaskGroup(ctx, groupID, includeFailures)
	if err != nil {
		return nil, err
	}
	results := make([]any, 0, len(recs))
	for _, rec := range recs {
		results = append(results, rec.Result)
	}
	return results, nil
}

// GetTaskGroup returns the full records of a group's recorded members.
func (m *Memory) GetTaskGroup(ctx context.Context, groupID string, includeFailures bool) ([]*domain.TaskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, ok := m.groups[groupID]
	if !ok || len(ids) == 0 {
		return nil, ErrGroupNotFound
	}
	recs := make([]*domain.TaskRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok := m.tasks[id]
		if !ok {
			continue
		}
		if !rec.Success && !includeFailures {
			continue
		}
		cp := *rec
		recs = append(recs, &cp)
	}
	if len(recs) == 0 {
		return nil, ErrGroupNotFound
	}
	return recs, nil
}

// GetGroupCount counts a group's recorded members.
func (m *Memory) GetGroupCount(ctx context.Context, groupID string, onlyFailures bool) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, id := range m.groups[groupID] {
		rec, ok := m.tasks[id]
		if !ok {
			continue
		}
		if onlyFailures && rec.Success {
			continue
		}
		count++
	}
	return count, nil
}

// DeleteGroup removes the group index and, optionally, its member records.
func (m *Memory) DeleteGroup(ctx context.Context, groupID string, deleteTasks bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.groups[groupID] {
		if deleteTasks {
			delete(m.tasks, id)
		} else if rec, ok := m.tasks[id]; ok {
			rec.Group = ""
		}
	}
	delete(m.groups, groupID)
	return nil
}

// SaveSchedule persists a schedule definition.
func (m *Memory) SaveSchedule(ctx context.Context, s *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

// GetSchedule returns a saved schedule. Not part of the Store contract; used
// by tests and the scheduler process.
func (m *Memory) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}
