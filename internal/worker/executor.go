package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qdispatch/internal/domain"
)

// Executor turns a task package into a finished record. Execution failures
// (unknown function, returned error, panic) never surface as Go errors: they
// become unsuccessful records with the failure text as the result, exactly as
// a caller polling for the result will see them.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	return &Executor{
		registry: registry,
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// Execute runs the package's function and returns the finished record.
func (e *Executor) Execute(ctx context.Context, pkg *domain.Package) *domain.TaskRecord {
	rec := &domain.TaskRecord{Package: *pkg}

	log := e.logger.With("task_id", pkg.ID, "task_name", pkg.Name, "func", pkg.Func)
	log.Debug("executing task")

	result, err := e.call(ctx, pkg)
	rec.Stopped = time.Now().UTC()
	if err != nil {
		rec.Success = false
		rec.Result = err.Error()
		log.Error("task execution failed", "error", err)
		return rec
	}

	rec.Success = true
	rec.Result = result
	log.Debug("task executed", "duration", rec.Duration())
	return rec
}

// call resolves and invokes the package's function, converting panics into
// errors so one bad task can't take the worker down.
func (e *Executor) call(ctx context.Context, pkg *domain.Package) (result any, err error) {
	fn, ok := e.registry.Resolve(pkg.Func)
	if !ok {
		return nil, fmt.Errorf("unknown function %q", pkg.Func)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %q: %v", pkg.Func, r)
		}
	}()

	return fn(ctx, pkg.Args, pkg.Kwargs)
}
