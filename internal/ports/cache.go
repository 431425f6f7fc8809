package ports

import (
	"context"
	"time"
)

// CacheRepository defines the interface for byte-value caching operations.
// The offline asset cache and ephemeral bookkeeping (e.g. dedup keys) sit
// on top of it; the redis adapter provides the implementation.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// SetTTL updates the TTL for an existing key.
	// Returns true if the key exists and TTL was updated.
	SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Keys returns the keys matching a glob-style pattern. Used by cache
	// activation to find entries left behind by older manifest versions.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}
