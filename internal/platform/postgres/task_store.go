package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"qdispatch/internal/domain"
	"qdispatch/internal/store"
)

// TaskStore implements store.Store on PostgreSQL.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a TaskStore over the given connection or transaction.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// SaveResult persists a finished task record, overwriting any previous record
// with the same id.
func (s *TaskStore) SaveResult(ctx context.Context, rec *domain.TaskRecord) error {
	args, err := json.Marshal(rec.Args)
	if err != nil {
		return fmt.Errorf("failed to encode task args: %w", err)
	}
	kwargs, err := json.Marshal(rec.Kwargs)
	if err != nil {
		return fmt.Errorf("failed to encode task kwargs: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}

	query := `
		INSERT INTO tasks (id, name, func, hook, args, kwargs, group_id, started, stopped, result, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			func = EXCLUDED.func,
			hook = EXCLUDED.hook,
			args = EXCLUDED.args,
			kwargs = EXCLUDED.kwargs,
			group_id = EXCLUDED.group_id,
			started = EXCLUDED.started,
			stopped = EXCLUDED.stopped,
			result = EXCLUDED.result,
			success = EXCLUDED.success
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Func,
		nullString(rec.Hook),
		args,
		kwargs,
		nullString(rec.Group),
		rec.Started,
		rec.Stopped,
		result,
		rec.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to save task record: %w", err)
	}
	return nil
}

// GetResult returns the result value of a finished task.
func (s *TaskStore) GetResult(ctx context.Context, id string) (any, error) {
	rec, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Result, nil
}

const taskColumns = `id, name, func, hook, args, kwargs, group_id, started, stopped, result, success`

// GetTask returns the full finished record, or store.ErrTaskNotFound.
func (s *TaskStore) GetTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	rec, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return rec, nil
}

// GetResultGroup returns the result values of a group's recorded members.
func (s *TaskStore) GetResultGroup(ctx context.Context, groupID string, includeFailures bool) ([]any, error) {
	recs, err := s.GetTaskGroup(ctx, groupID, includeFailures)
	if err != nil {
		return nil, err
	}
	results := make([]any, 0, len(recs))
	for _, rec := range recs {
		results = append(results, rec.Result)
	}
	return results, nil
}

// GetTaskGroup returns the full records of a group's recorded members, in
// completion order, or store.ErrGroupNotFound when none are recorded.
func (s *TaskStore) GetTaskGroup(ctx context.Context, groupID string, includeFailures bool) ([]*domain.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE group_id = $1`
	if !includeFailures {
		query += ` AND success`
	}
	query += ` ORDER BY stopped ASC`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task group: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []*domain.TaskRecord
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task group row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task group rows: %w", err)
	}
	if len(recs) == 0 {
		return nil, store.ErrGroupNotFound
	}
	return recs, nil
}

// GetGroupCount counts a group's recorded members.
func (s *TaskStore) GetGroupCount(ctx context.Context, groupID string, onlyFailures bool) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE group_id = $1`
	if onlyFailures {
		query += ` AND NOT success`
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count task group: %w", err)
	}
	return count, nil
}

// DeleteGroup removes the group association and, with deleteTasks set, the
// member records themselves.
func (s *TaskStore) DeleteGroup(ctx context.Context, groupID string, deleteTasks bool) error {
	query := `UPDATE tasks SET group_id = NULL WHERE group_id = $1`
	if deleteTasks {
		query = `DELETE FROM tasks WHERE group_id = $1`
	}
	if _, err := s.db.ExecContext(ctx, query, groupID); err != nil {
		return fmt.Errorf("failed to delete task group: %w", err)
	}
	return nil
}

// SaveSchedule persists a schedule definition.
func (s *TaskStore) SaveSchedule(ctx context.Context, sched *domain.Schedule) error {
	args, err := json.Marshal(sched.Args)
	if err != nil {
		return fmt.Errorf("failed to encode schedule args: %w", err)
	}
	kwargs, err := json.Marshal(sched.Kwargs)
	if err != nil {
		return fmt.Errorf("failed to encode schedule kwargs: %w", err)
	}

	query := `
		INSERT INTO schedules (id, name, func, args, kwargs, hook, type, minutes, cron, repeats, next_run)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			func = EXCLUDED.func,
			args = EXCLUDED.args,
			kwargs = EXCLUDED.kwargs,
			hook = EXCLUDED.hook,
			type = EXCLUDED.type,
			minutes = EXCLUDED.minutes,
			cron = EXCLUDED.cron,
			repeats = EXCLUDED.repeats,
			next_run = EXCLUDED.next_run
	`
	_, err = s.db.ExecContext(ctx, query,
		sched.ID,
		sched.Name,
		sched.Func,
		args,
		kwargs,
		nullString(sched.Hook),
		string(sched.Type),
		sched.Minutes,
		nullString(sched.Cron),
		sched.Repeats,
		sched.NextRun,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.TaskRecord, error) {
	var (
		rec            domain.TaskRecord
		hook, group    sql.NullString
		args, kwargs   []byte
		result         []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Func,
		&hook,
		&args,
		&kwargs,
		&group,
		&rec.Started,
		&rec.Stopped,
		&result,
		&rec.Success,
	)
	if err != nil {
		return nil, err
	}
	rec.Hook = hook.String
	rec.Group = group.String
	if err := json.Unmarshal(args, &rec.Args); err != nil {
		return nil, fmt.Errorf("failed to decode task args: %w", err)
	}
	if err := json.Unmarshal(kwargs, &rec.Kwargs); err != nil {
		return nil, fmt.Errorf("failed to decode task kwargs: %w", err)
	}
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to decode task result: %w", err)
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
