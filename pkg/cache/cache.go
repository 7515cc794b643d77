// Package cache provides the TTL string cache used in front of slow upstream reads.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chainsafe/wallet-indexer/pkg/config"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores string values with a per-entry TTL.
type Cache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// New builds the cache backend selected in cfg. The returned close func releases backend connections.
func New(cfg config.CacheConfig) (Cache, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(), func() error { return nil }, nil
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(opt)
		return NewRedisCache(client, cfg.KeyPrefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
