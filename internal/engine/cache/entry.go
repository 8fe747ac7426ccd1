package cache

import "time"

// Entry is a cached value with its expiry.
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
}

// newEntry creates an entry expiring ttl after now.
func newEntry[V any](v V, now time.Time, ttl time.Duration) Entry[V] {
	return Entry[V]{Value: v, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

// IsExpired reports whether the entry has expired at now.
func (e Entry[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Age returns how long ago the entry was created.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TimeUntilExpiration returns the remaining lifetime, or 0 once expired.
func (e Entry[V]) TimeUntilExpiration(now time.Time) time.Duration {
	if remaining := e.ExpiresAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}
