// Package ttlcache provides a small time-bounded memoization cache used to
// bound store query rate under the polling refresh loop.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache maps string keys to values that expire a fixed TTL after insertion.
// All operations are mutex-serialized; the tick rate is on the order of 1 Hz,
// so contention is not a concern. A TTL of zero disables caching entirely:
// every Get misses and callers fall through to the store, just slower.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration
	maxSize int
}

// New creates a cache with the given TTL and capacity.
func New[V any](ttl time.Duration, maxSize int) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V], maxSize),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get returns the live value for key. Expired entries are deleted on read.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value. At capacity the single oldest entry by insertion time
// is evicted first; access recency is deliberately ignored since every key
// is re-read each tick anyway.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.storedAt.Before(oldestAt) {
				oldestKey, oldestAt = k, e.storedAt
				first = false
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = entry[V]{value: value, storedAt: time.Now()}
}

// Invalidate removes one entry.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V], c.maxSize)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
