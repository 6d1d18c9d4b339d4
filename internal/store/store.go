// Package store defines the durable record store contract. The orchestration
// core only queries it; the one writer is the monitor, which appends finished
// records. Implementations: postgres (internal/platform/postgres) and the
// in-memory store in this package.
package store

import (
	"context"

	"qdispatch/internal/domain"
)

// Store persists finished task records and schedules.
//
// Group retrieval takes an includeFailures flag: result/task queries exclude
// failed members unless it is set, while GetGroupCount inverts it and counts
// only failures when set (matching the retrieval API the core exposes).
type Store interface {
	// SaveResult persists a finished task record. Saving an id that already
	// exists overwrites the previous record.
	SaveResult(ctx context.Context, rec *domain.TaskRecord) error

	// GetResult returns the result value of a finished task, or
	// ErrTaskNotFound when no record exists.
	GetResult(ctx context.Context, id string) (any, error)

	// GetTask returns the full finished record, or ErrTaskNotFound.
	GetTask(ctx context.Context, id string) (*domain.TaskRecord, error)

	// GetResultGroup returns the result values of a group's recorded members,
	// or ErrGroupNotFound when none are recorded yet.
	GetResultGroup(ctx context.Context, groupID string, includeFailures bool) ([]any, error)

	// GetTaskGroup returns the full records of a group's recorded members,
	// or ErrGroupNotFound when none are recorded yet.
	GetTaskGroup(ctx context.Context, groupID string, includeFailures bool) ([]*domain.TaskRecord, error)

	// GetGroupCount counts a group's recorded members; with onlyFailures set
	// it counts only failed members. An unknown group counts as zero.
	GetGroupCount(ctx context.Context, groupID string, onlyFailures bool) (int, error)

	// DeleteGroup removes the group index. With deleteTasks set the member
	// records are removed too; otherwise they stay retrievable by id, just
	// no longer grouped.
	DeleteGroup(ctx context.Context, groupID string, deleteTasks bool) error

	// SaveSchedule persists a schedule definition.
	SaveSchedule(ctx context.Context, s *domain.Schedule) error
}
