// Package worker executes task packages. Function references travel through
// the broker as names; the registry maps those names back to Go functions on
// the executing side.
package worker

import (
	"context"
	"sync"

	"qdispatch/internal/domain"
)

// Func is a registered task function. Arguments arrive exactly as they came
// out of the signed payload, which crossed the wire as JSON: numbers are
// float64, sequences are []any, mappings are map[string]any. Implementations
// assert what they need.
type Func func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Hook is a post-completion callback invoked with the finished record.
type Hook func(ctx context.Context, rec *domain.TaskRecord)

// Registry maps function and hook names to implementations. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
	hooks map[string]Hook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]Func),
		hooks: make(map[string]Hook),
	}
}

// Register adds (or replaces) a task function under name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// RegisterHook adds (or replaces) a hook under name.
func (r *Registry) RegisterHook(name string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = h
}

// Resolve looks up a task function by name.
func (r *Registry) Resolve(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// ResolveHook looks up a hook by name.
func (r *Registry) ResolveHook(name string) (Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[name]
	return h, ok
}
