package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/wallet-indexer/pkg/config"
)

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.nowFn = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.SetString(ctx, "feed", "payload", 5*time.Minute))

	val, err := c.GetString(ctx, "feed")
	require.NoError(t, err)
	assert.Equal(t, "payload", val)

	now = now.Add(4*time.Minute + 59*time.Second)
	_, err = c.GetString(ctx, "feed")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.GetString(ctx, "feed")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.GetString(ctx, "unknown")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "wi:")
	ctx := context.Background()

	mock.ExpectSet("wi:feed", "payload", time.Minute).SetVal("OK")
	require.NoError(t, c.SetString(ctx, "feed", "payload", time.Minute))

	mock.ExpectGet("wi:feed").SetVal("payload")
	val, err := c.GetString(ctx, "feed")
	require.NoError(t, err)
	assert.Equal(t, "payload", val)

	mock.ExpectGet("wi:missing").SetErr(redis.Nil)
	_, err = c.GetString(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	mock.ExpectGet("wi:broken").SetErr(errors.New("connection refused"))
	_, err = c.GetString(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew(t *testing.T) {
	c, closeFn, err := New(config.CacheConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	assert.NoError(t, closeFn())

	c, closeFn, err = New(config.CacheConfig{Backend: "redis", RedisURL: "redis://localhost:6379/0"})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	assert.NoError(t, closeFn())

	_, _, err = New(config.CacheConfig{Backend: "redis", RedisURL: "::bad"})
	assert.Error(t, err)

	_, _, err = New(config.CacheConfig{Backend: "disk"})
	assert.Error(t, err)
}
