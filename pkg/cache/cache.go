package cache

import (
	"context"
	"time"
)

// Cache is the interface for session storage.
// Values written as []byte may come back as []byte or string depending on the backend.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns the value and true if found, or nil and false if not found or expired.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL. A non-positive TTL uses the backend default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from cache. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from cache.
	Clear(ctx context.Context) error

	// Close releases resources held by the cache.
	Close() error

	// Metrics returns cache statistics.
	Metrics() *Metrics
}

// Sizer is implemented by caches that can report how many entries they hold
type Sizer interface {
	Len() int
	Size() int64
}

// Metrics holds cache performance statistics.
type Metrics struct {
	// Hits is the number of session lookups that found a live entry
	Hits uint64

	// Misses is the number of lookups for missing or expired entries
	Misses uint64

	// KeysAdded is the number of keys added to cache
	KeysAdded uint64

	// KeysEvicted is the number of keys evicted for capacity
	KeysEvicted uint64

	// KeysExpired is the number of keys dropped because their TTL passed
	KeysExpired uint64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (m *Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(total)
}
