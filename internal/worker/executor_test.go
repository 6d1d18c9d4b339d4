package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdispatch/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPackage(fn string, args ...any) *domain.Package {
	return &domain.Package{
		ID:      "task-1",
		Name:    "amber-fox-iris-oak",
		Func:    fn,
		Args:    args,
		Started: time.Now().UTC(),
	}
}

func TestExecuteSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.Register("math.add", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return args[0].(float64) + args[1].(float64), nil
	})
	e := NewExecutor(reg, discardLogger())

	rec := e.Execute(context.Background(), testPackage("math.add", float64(1), float64(2)))

	assert.True(t, rec.Success)
	assert.Equal(t, float64(3), rec.Result)
	assert.False(t, rec.Stopped.IsZero())
	assert.True(t, rec.Stopped.After(rec.Started) || rec.Stopped.Equal(rec.Started))
}

func TestExecuteFunctionError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("always.fails", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	e := NewExecutor(reg, discardLogger())

	rec := e.Execute(context.Background(), testPackage("always.fails"))

	assert.False(t, rec.Success)
	assert.Equal(t, "boom", rec.Result)
}

func TestExecuteUnknownFunction(t *testing.T) {
	e := NewExecutor(NewRegistry(), discardLogger())

	rec := e.Execute(context.Background(), testPackage("no.such.func"))

	assert.False(t, rec.Success)
	assert.Contains(t, rec.Result, "unknown function")
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register("always.panics", func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		panic("kaboom")
	})
	e := NewExecutor(reg, discardLogger())

	rec := e.Execute(context.Background(), testPackage("always.panics"))

	require.False(t, rec.Success)
	assert.Contains(t, rec.Result, "kaboom")
}

func TestRegistryHooks(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.RegisterHook("notify", func(ctx context.Context, rec *domain.TaskRecord) {
		called = true
	})

	h, ok := reg.ResolveHook("notify")
	require.True(t, ok)
	h(context.Background(), &domain.TaskRecord{})
	assert.True(t, called)

	_, ok = reg.ResolveHook("missing")
	assert.False(t, ok)
}
