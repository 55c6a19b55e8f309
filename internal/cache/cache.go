// Package cache provides short-lived caching for recommendation responses.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value cache with per-entry TTL.
type Cache interface {
	// Get returns the cached value; the bool reports whether the key exists
	// and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
