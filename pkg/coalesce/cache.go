package coalesce

import (
	"context"
	"sync"
	"sync/atomic"
)

// Call is one in-flight execution shared by every caller with the same key.
type Call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Done is closed when the call settles.
func (c *Call[V]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles or ctx ends. Abandoning the wait does
// not cancel the call.
func (c *Call[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Cache maps keys to in-flight calls. The zero value is not usable; use New.
type Cache[V any] struct {
	mu    sync.Mutex
	calls map[string]*Call[V]

	created   atomic.Int64
	coalesced atomic.Int64
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{calls: make(map[string]*Call[V])}
}

// GetOrCreate returns the in-flight call for key. When none exists, factory
// is started in its own goroutine and isNew is true; the caller is then
// responsible for calling Clear(key) once the call settles.
func (c *Cache[V]) GetOrCreate(key string, factory func() (V, error)) (call *Call[V], isNew bool) {
	c.mu.Lock()
	if existing, ok := c.calls[key]; ok {
		c.mu.Unlock()
		c.coalesced.Add(1)
		return existing, false
	}

	call = &Call[V]{done: make(chan struct{})}
	c.calls[key] = call
	c.mu.Unlock()
	c.created.Add(1)

	go func() {
		defer close(call.done)
		call.val, call.err = factory()
	}()

	return call, true
}

// Clear removes key so the next request for it starts a new call.
func (c *Cache[V]) Clear(key string) {
	c.mu.Lock()
	delete(c.calls, key)
	c.mu.Unlock()
}

// Do runs factory for key, or joins the call already in flight, and waits
// for the result. The creator clears the key once the call settles, even
// if its own wait was abandoned.
func (c *Cache[V]) Do(ctx context.Context, key string, factory func() (V, error)) (v V, shared bool, err error) {
	call, isNew := c.GetOrCreate(key, factory)
	if isNew {
		go func() {
			<-call.Done()
			c.Clear(key)
		}()
	}
	v, err = call.Wait(ctx)
	return v, !isNew, err
}

// Len returns the number of calls in flight.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Stats returns how many calls were started and how many requests joined
// an existing call.
func (c *Cache[V]) Stats() (created, coalesced int64) {
	return c.created.Load(), c.coalesced.Load()
}
