package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// MemoryCache implements an in-process cache with TTL
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	nowFn func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		nowFn: time.Now,
	}
}

// GetString returns the value stored under key, or ErrCacheMiss.
func (c *MemoryCache) GetString(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !c.nowFn().Before(item.expiresAt) {
		delete(c.items, key)
		return "", ErrCacheMiss
	}
	return item.value, nil
}

// SetString stores value under key for ttl.
func (c *MemoryCache) SetString(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memoryItem{
		value:     value,
		expiresAt: c.nowFn().Add(ttl),
	}
	return nil
}
