package cache

import (
	"context"
	"time"
)

// Cache defines the key-value operations the platform needs from its cache.
// The contest catalog is the main consumer; the abstraction keeps Redis
// swappable (miniredis in tests).
type Cache interface {
	// Get retrieves the value for the given key
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair with optional TTL (0 = no expiry)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Exists returns the number of given keys that exist
	Exists(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies the cache connection is alive
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}
