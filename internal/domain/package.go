// Package domain defines the core entities of the task queue: the task
// package that travels the broker, the finished task record, and the schedule
// definition. Entities are plain structs with no behavior beyond small
// accessors; validation and persistence live in the layers that use them.
package domain

import "time"

// Step is one link of a chain: a function with its arguments, executed only
// after every preceding step in the chain succeeded.
type Step struct {
	Func   string         `json:"func"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// Package is a single task submission as it travels through the broker. The
// three-valued option fields (*bool) distinguish "caller said true/false" from
// "caller said nothing, apply the process default"; unset options stay off the
// wire entirely.
type Package struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Func    string         `json:"func"`
	Args    []any          `json:"args,omitempty"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	Started time.Time      `json:"started"`

	// Hook names a registered callback run after the task finishes.
	Hook string `json:"hook,omitempty"`

	// Group links related submissions for collective retrieval.
	Group string `json:"group,omitempty"`

	// Save overrides the process default for persisting the finished record.
	Save *bool `json:"save,omitempty"`

	// Sync requests in-process execution instead of enqueueing.
	Sync *bool `json:"sync,omitempty"`

	// Cached routes the finished record to the broker cache instead of the
	// durable store.
	Cached *bool `json:"cached,omitempty"`

	// IterCount is the fan-out cardinality of an iterator group; member
	// packages carry it so the finalizer knows when the group is complete.
	IterCount int `json:"iter_count,omitempty"`

	// IterCached preserves the caller's cache preference for the collated
	// iterator result, since members themselves always run cached.
	IterCached *bool `json:"iter_cached,omitempty"`

	// Chain holds the steps still to run after this one succeeds.
	Chain []Step `json:"chain,omitempty"`
}

// IsCached reports whether the finished record goes to the broker cache.
func (p *Package) IsCached() bool {
	return p.Cached != nil && *p.Cached
}

// IsSync reports whether the package asked for in-process execution.
func (p *Package) IsSync() bool {
	return p.Sync != nil && *p.Sync
}

// TaskRecord is a finished task: the package it ran from plus the outcome.
// Failed executions carry the failure text as Result with Success false.
type TaskRecord struct {
	Package

	Stopped time.Time `json:"stopped"`
	Result  any       `json:"result,omitempty"`
	Success bool      `json:"success"`
}

// Duration returns the wall-clock execution time.
func (r *TaskRecord) Duration() time.Duration {
	return r.Stopped.Sub(r.Started)
}
