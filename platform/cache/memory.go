package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache implementation.
// Suitable for tests and single-instance deployments.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Used by tests to exercise expiry.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Remember implements Cache.
func (c *MemoryCache) Remember(ctx context.Context, key string, ttl time.Duration, producer Producer) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.value, nil
	}
	c.mu.Unlock()

	val, err := producer(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{value: val, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return val, nil
}

// Forget implements Cache.
func (c *MemoryCache) Forget(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
