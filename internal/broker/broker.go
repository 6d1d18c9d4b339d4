// Package broker defines the pluggable transport and key-value cache the
// platform queues through, plus an in-memory implementation suitable for
// tests, synchronous mode, and single-process deployments.
package broker

import (
	"context"
	"errors"
)

// Common errors returned by broker implementations.
var (
	ErrQueueClosed = errors.New("broker queue is closed")
	ErrQueueFull   = errors.New("broker queue is full")
)

// Broker is the transport facade: an opaque payload queue plus a key-value
// cache scoped by a namespace prefix. Implementations must be safe for
// concurrent use from many submitters and many workers.
type Broker interface {
	// Enqueue pushes a signed payload onto the queue.
	Enqueue(ctx context.Context, payload []byte) error

	// Dequeue pops the next payload, blocking until one is available or ctx
	// is done.
	Dequeue(ctx context.Context) ([]byte, error)

	// QueueSize returns the number of payloads waiting in the queue. Payloads
	// currently held by workers are not counted.
	QueueSize(ctx context.Context) (int, error)

	// Cache returns the broker's key-value cache.
	Cache() Cache

	// ListKey returns the namespace prefix used to scope cache keys.
	ListKey() string
}

// Cache is the broker's ephemeral key-value store. Get returns (nil, nil)
// for a missing key: absence is not an error at this layer.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
}
