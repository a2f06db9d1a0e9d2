// Package cache provides an in-memory cache that deduplicates concurrent
// loads of the same key and expires values by TTL. It fronts the provider
// HTTP calls so a burst of lookups for the same serie hits the network once.
package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds per-key state. While a load is in flight, done is open and
// value/expiry are unset; once the leader finishes, done is closed and on
// success value/expiry carry the result.
type entry[V any] struct {
	done   chan struct{}
	value  V
	expiry time.Time
}

// Cache caches the results of a loader function keyed by K. The zero value is
// not usable; construct with New. Instances are safe for concurrent use.
//
// Several caches may share one key space by constructing them with a shared
// Map, letting different loaders coordinate on overlapping keys.
type Cache[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      *sync.Mutex
	entries map[K]*entry[V]
}

// Map is a key space shareable between caches.
type Map[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{entries: make(map[K]*entry[V])}
}

type Option[K comparable, V any] func(*Cache[K, V])

// WithMap makes the cache use a shared key space instead of a private one.
func WithMap[K comparable, V any](m *Map[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.mu = &m.mu
		c.entries = m.entries
	}
}

// withClock overrides the time source. Tests use it to age entries.
func withClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) { c.now = now }
}

func New[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		ttl:     ttl,
		now:     time.Now,
		mu:      &sync.Mutex{},
		entries: make(map[K]*entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFill returns the cached value for key, or runs load to produce it.
//
// The first caller for a key becomes the leader and runs load; callers
// arriving while the load is in flight wait for it. If the leader's load
// fails, waiters retry and elect a new leader, so a transient failure never
// poisons the key. Expired entries count as misses.
func (c *Cache[K, V]) GetOrFill(ctx context.Context, key K, load func(ctx context.Context) (V, error)) (V, error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		if ok {
			if e.done == nil && c.now().Before(e.expiry) {
				v := e.value
				c.mu.Unlock()
				return v, nil
			}
			if e.done != nil {
				done := e.done
				c.mu.Unlock()
				select {
				case <-done:
				case <-ctx.Done():
					var zero V
					return zero, ctx.Err()
				}
				// Re-read: the leader may have failed, in which case the
				// key is gone and the next loop iteration elects us.
				continue
			}
			// Expired value; fall through and reload.
		}
		e = &entry[V]{done: make(chan struct{})}
		c.entries[key] = e
		c.mu.Unlock()

		v, err := load(ctx)
		c.mu.Lock()
		if err != nil {
			delete(c.entries, key)
		} else {
			e.value = v
			e.expiry = c.now().Add(c.ttl)
		}
		done := e.done
		e.done = nil
		c.mu.Unlock()
		close(done)

		if err != nil {
			var zero V
			return zero, err
		}
		return v, nil
	}
}

// Forget drops the key if it holds a settled value. In-flight loads are left
// alone so their waiters still get an answer.
func (c *Cache[K, V]) Forget(key K) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.done == nil {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}
