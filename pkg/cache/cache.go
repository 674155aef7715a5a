package cache

import "time"

// Cache stores venue metadata that is expensive to refetch, keyed by
// token or market identifier. Implementations are safe for concurrent
// use.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL and reports whether it was admitted.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a key.
	Delete(key string)

	// Clear removes every entry.
	Clear()

	// Close releases the cache's resources.
	Close()
}
