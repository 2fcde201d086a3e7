package redis

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digests-pipeline/core/errors"
	"digests-pipeline/pkg/config"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache(config.RedisConfig{Address: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestNewRedisCache_InvalidAddress(t *testing.T) {
	cache, err := NewRedisCache(config.RedisConfig{Address: ""})

	assert.Error(t, err)
	assert.Nil(t, cache)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cache, err := NewRedisCache(config.RedisConfig{Address: addr})
	assert.Error(t, err)
	assert.Nil(t, cache)
}

func TestRedisCache_SetGetWithPrefix(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "enrich:embedding:abc", []byte("payload"), time.Hour))

	got, err := cache.Get(ctx, "enrich:embedding:abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	raw, err := mr.Get("test:cache:enrich:embedding:abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", raw)
	assert.Equal(t, time.Hour, mr.TTL("test:cache:enrich:embedding:abc"))
}

func TestRedisCache_MissIsErrCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), "absent")
	assert.Nil(t, got)
	assert.True(t, stderrors.Is(err, errors.ErrCacheMiss))
}

func TestRedisCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "k")
	assert.True(t, stderrors.Is(err, errors.ErrCacheMiss))
}

func TestRedisCache_ZeroTTLPersists(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 0))
	mr.FastForward(365 * 24 * time.Hour)

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "k"))
	require.NoError(t, cache.Delete(ctx, "never-set"))

	_, err := cache.Get(ctx, "k")
	assert.True(t, errors.IsCacheMiss(err))
}

func TestNewFromClient_DoesNotCloseSharedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewFromClient(client, "shared:")
	require.NoError(t, cache.Close())

	require.NoError(t, client.Ping(context.Background()).Err())
}
