package broker

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Broker: a buffered channel as the queue and a
// mutex-guarded map as the cache. Values are copied on both set and get so
// callers can't alias the cache's own buffers.
type Memory struct {
	listKey string
	queue   chan []byte
	cache   *memoryCache

	mu     sync.Mutex
	closed bool
}

// NewMemory creates an in-memory broker with the given namespace prefix and
// queue capacity.
func NewMemory(listKey string, queueSize int) *Memory {
	return &Memory{
		listKey: listKey,
		queue:   make(chan []byte, queueSize),
		cache:   newMemoryCache(),
	}
}

// Enqueue pushes a payload onto the queue. Returns ErrQueueFull when the
// buffer is at capacity rather than blocking the submitter.
func (m *Memory) Enqueue(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	cp := append([]byte(nil), payload...)
	select {
	case m.queue <- cp:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(m.queue))
	}
}

// Dequeue pops the next payload, blocking until one arrives, the queue is
// closed and drained, or ctx is done.
func (m *Memory) Dequeue(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-m.queue:
		if !ok {
			return nil, ErrQueueClosed
		}
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueSize returns the number of buffered payloads.
func (m *Memory) QueueSize(ctx context.Context) (int, error) {
	return len(m.queue), nil
}

// Cache returns the broker's key-value cache.
func (m *Memory) Cache() Cache {
	return m.cache
}

// ListKey returns the namespace prefix used to scope cache keys.
func (m *Memory) ListKey() string {
	return m.listKey
}

// Close closes the queue. Buffered payloads remain dequeueable; further
// enqueues fail with ErrQueueClosed.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
}

type memoryCache struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{m: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *memoryCache) DeleteMany(ctx context.Context, keys []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
	return nil
}
