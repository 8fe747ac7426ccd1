package cache

import (
	"sync"
	"time"
)

// TTLCache is a concurrency-safe map whose entries expire. A zero TTL
// disables caching: Set is a no-op and Get always misses.
type TTLCache[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[K]Entry[V]
}

// NewTTLCache creates a cache with the given TTL.
func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{ttl: ttl, now: time.Now, entries: map[K]Entry[V]{}}
}

// Enabled reports whether entries are kept at all.
func (c *TTLCache[K, V]) Enabled() bool { return c.ttl > 0 }

// TTL returns the configured TTL.
func (c *TTLCache[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the live value for key. Expired entries are removed.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if !c.Enabled() {
		return zero, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if e.IsExpired(c.now()) {
		c.mu.Lock()
		// Recheck: a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && cur.IsExpired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.Value, true
}

// Set stores v under key.
func (c *TTLCache[K, V]) Set(key K, v V) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = newEntry(v, c.now(), c.ttl)
}

// Delete removes key. Deleting a missing key is not an error.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *TTLCache[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.IsExpired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Count returns the number of entries, including expired ones not yet
// cleaned up.
func (c *TTLCache[K, V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
