// Package cache provides a small read-through key-value cache abstraction
// with TTL semantics. This is part of the platform layer and contains no
// business logic.
package cache

import (
	"context"
	"time"
)

// Producer computes the value for a cache miss.
type Producer func(ctx context.Context) (string, error)

// Cache is a read-through cache with TTL-bounded entries.
// Values are plain strings; callers marshal structured data themselves.
type Cache interface {
	// Remember returns the cached value for key, or invokes producer,
	// stores the result for ttl, and returns it.
	// A producer error is returned unchanged and nothing is stored.
	Remember(ctx context.Context, key string, ttl time.Duration, producer Producer) (string, error)

	// Forget evicts the entry for key. Evicting a missing key is a no-op.
	Forget(ctx context.Context, key string) error
}
