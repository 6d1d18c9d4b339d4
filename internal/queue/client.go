// Package queue is the client-facing orchestration core: it packages units of
// work, signs and enqueues them through the broker, coordinates task groups
// and dependent chains, and provides timeout-bounded polling retrieval of
// results from the durable store or the broker cache.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"qdispatch/internal/broker"
	"qdispatch/internal/codec"
	"qdispatch/internal/domain"
	"qdispatch/internal/identity"
	"qdispatch/internal/store"
	"qdispatch/internal/worker"
)

// Submission errors.
var (
	ErrMissingFunc = errors.New("task function name is required")
	ErrEmptyChain  = errors.New("chain needs at least one step")
	ErrNoArgSets   = errors.New("iterator submission needs at least one argument set")
)

// Defaults are the process-wide option defaults, threaded in explicitly at
// construction rather than read from ambient state.
type Defaults struct {
	// Cached routes results through the broker cache when a submission does
	// not set the option itself.
	Cached bool

	// Sync forces every submission down the synchronous in-process path.
	Sync bool

	// Save persists finished records to the durable store unless a package
	// carries an explicit override.
	Save bool
}

// Options is the recognized option set for a single submission. Unset fields
// fall back to their defaults; tri-state fields are pointers so an explicit
// false is distinguishable from unset.
type Options struct {
	// Hook names a registered post-completion callback.
	Hook string

	// Group assigns the task to a group.
	Group string

	// Save overrides the process default for durable persistence.
	Save *bool

	// Sync forces (or suppresses) synchronous in-process execution.
	Sync *bool

	// Cached routes the result through the broker cache instead of the
	// durable store.
	Cached *bool

	// IterCount is the fan-out cardinality of an iterator group. Set by
	// SubmitIter, not by callers.
	IterCount int

	// IterCached preserves the caller's cache preference across iterator
	// bookkeeping. Set by SubmitIter, not by callers.
	IterCached *bool

	// Chain is the remaining ordered sequence of pending steps to submit as
	// each predecessor completes.
	Chain []domain.Step

	// Broker overrides the client's broker for this submission.
	Broker broker.Broker
}

// Bool is a convenience for populating tri-state option fields.
func Bool(v bool) *bool { return &v }

// Client is the submission and retrieval API. It owns no shared mutable
// state; every method either performs one broker/cache/store operation or
// polls read-only state, so a single Client is safe for concurrent use.
type Client struct {
	broker   broker.Broker
	store    store.Store
	signer   *codec.Signer
	executor *worker.Executor
	registry *worker.Registry
	monitor  *Monitor
	defaults Defaults
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a Client. The registry is only exercised by the synchronous
// path and the in-process cluster; a pure submitter may pass an empty one.
func New(
	defaults Defaults,
	b broker.Broker,
	st store.Store,
	signer *codec.Signer,
	registry *worker.Registry,
	logger *slog.Logger,
) *Client {
	c := &Client{
		broker:   b,
		store:    st,
		signer:   signer,
		executor: worker.NewExecutor(registry, logger),
		registry: registry,
		defaults: defaults,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "queue")),
	}
	c.monitor = newMonitor(c)
	return c
}

// Submit packages a function call and queues it for the cluster, returning
// the new task id without waiting for execution. When the sync option (or
// the process-wide sync default) is set, the task instead runs immediately
// in-process and the id is returned after the simulated round trip completes.
func (c *Client) Submit(ctx context.Context, fn string, args []any, kwargs map[string]any, opts *Options) (string, error) {
	if fn == "" {
		return "", ErrMissingFunc
	}
	if opts == nil {
		opts = &Options{}
	}

	name, id := identity.New()
	pkg := domain.Package{
		ID:      id,
		Name:    name,
		Func:    fn,
		Args:    args,
		Kwargs:  kwargs,
		Started: time.Now().UTC(),

		Hook:       opts.Hook,
		Group:      opts.Group,
		Save:       opts.Save,
		Sync:       opts.Sync,
		IterCount:  opts.IterCount,
		IterCached: opts.IterCached,
		Chain:      opts.Chain,
	}
	switch {
	case opts.Cached != nil:
		pkg.Cached = opts.Cached
	case c.defaults.Cached:
		pkg.Cached = Bool(true)
	}

	payload, err := c.signer.Sign(pkg)
	if err != nil {
		return "", fmt.Errorf("failed to sign package: %w", err)
	}

	if pkg.IsSync() || c.defaults.Sync {
		return c.runSync(ctx, payload)
	}

	b := c.brokerFor(opts)
	if err := b.Enqueue(ctx, payload); err != nil {
		return "", fmt.Errorf("failed to enqueue package: %w", err)
	}
	c.logger.Debug("pushed task", "task_id", id, "task_name", name, "func", fn)
	return id, nil
}

// runSync simulates the full queue→execute→finalize path in-process: the
// payload is opened back through the codec exactly as a worker would, so
// synchronous tasks exercise the same framing and integrity checks.
func (c *Client) runSync(ctx context.Context, payload []byte) (string, error) {
	var pkg domain.Package
	if err := c.signer.Open(payload, &pkg); err != nil {
		return "", err
	}
	rec := c.executor.Execute(ctx, &pkg)
	if err := c.monitor.Finalize(ctx, rec); err != nil {
		return "", err
	}
	return pkg.ID, nil
}

// QueueSize returns the number of payloads waiting in the broker queue.
// Tasks currently held by workers are not counted.
func (c *Client) QueueSize(ctx context.Context) (int, error) {
	return c.broker.QueueSize(ctx)
}

func (c *Client) brokerFor(opts *Options) broker.Broker {
	if opts != nil && opts.Broker != nil {
		return opts.Broker
	}
	return c.broker
}

func (c *Client) keys() cacheKeys {
	return cacheKeys{prefix: c.broker.ListKey()}
}
