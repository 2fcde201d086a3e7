// Package interfaces defines the ports the pipeline depends on.
// Adapters under infrastructure/ implement them; core packages only see these.
package interfaces

import (
	"context"
	"time"
)

// Cache defines the interface for cache operations.
// The pipeline uses it for AI results keyed by content hash and for
// conditional GET validators keyed by source id.
//
// Example usage:
//
//	// Store an embedding for a day
//	err := cache.Set(ctx, "enrich:embedding:"+hash, payload, 24*time.Hour)
//
//	// Retrieve it; a miss returns errors.ErrCacheMiss
//	data, err := cache.Get(ctx, "enrich:embedding:"+hash)
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns the cached data as []byte or an error if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given key and TTL.
	// If ttl is 0, the value should be stored indefinitely.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache by key.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error
}
