// Package cache provides short-TTL caching for derived views (analytics
// snapshots, aggregated registry state) served by the query surface, so
// repeated reads do not re-walk the registry.
package cache

import "time"

// Cache is the read-through cache boundary the query surface depends on.
// Values are opaque; the TTL bounds how stale a derived view may get.
type Cache interface {
	// Get returns (value, true) on a hit, (nil, false) on a miss.
	Get(key string) (interface{}, bool)

	// Set stores a value for at most ttl. It reports whether the store was
	// accepted; callers treat rejection as a miss, never an error.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete invalidates a key, used when the underlying view changes out
	// of band.
	Delete(key string)

	// Close releases the cache's resources.
	Close()
}
