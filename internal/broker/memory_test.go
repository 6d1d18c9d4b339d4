package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	b := NewMemory("testq", 4)

	require.NoError(t, b.Enqueue(ctx, []byte("one")))
	require.NoError(t, b.Enqueue(ctx, []byte("two")))

	size, err := b.QueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	got, err := b.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	got, err = b.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestMemoryEnqueueFull(t *testing.T) {
	ctx := context.Background()
	b := NewMemory("testq", 1)

	require.NoError(t, b.Enqueue(ctx, []byte("one")))
	err := b.Enqueue(ctx, []byte("two"))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestMemoryDequeueHonorsContext(t *testing.T) {
	b := NewMemory("testq", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryClose(t *testing.T) {
	ctx := context.Background()
	b := NewMemory("testq", 2)

	require.NoError(t, b.Enqueue(ctx, []byte("one")))
	b.Close()

	// Buffered payloads stay readable after close.
	got, err := b.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	_, err = b.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)

	err = b.Enqueue(ctx, []byte("two"))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("testq", 1).Cache()

	// Missing key is absent, not an error.
	v, err := c.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	require.NoError(t, c.Set(ctx, "c", []byte("3")))

	v, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, c.Delete(ctx, "a"))
	v, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.DeleteMany(ctx, []string{"b", "c"}))
	v, err = c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, v)
}
