package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestCacheRoundTripAndTTL(t *testing.T) {
	mr, rc := newMiniRedis(t)
	cache := NewCache(rc, 30*time.Second)
	ctx := context.Background()

	cache.SetJSON(ctx, "cache:post:detail:1", map[string]string{"title": "Pothole"})
	var got map[string]string
	require.True(t, cache.GetJSON(ctx, "cache:post:detail:1", &got))
	assert.Equal(t, "Pothole", got["title"])
	assert.Equal(t, 30*time.Second, mr.TTL("cache:post:detail:1"))

	mr.FastForward(31 * time.Second)
	assert.False(t, cache.GetJSON(ctx, "cache:post:detail:1", &got))
}

func TestCacheInvalidateByPrefix(t *testing.T) {
	mr, rc := newMiniRedis(t)
	cache := NewCache(rc, time.Minute)
	ctx := context.Background()

	cache.SetJSON(ctx, "cache:posts:list", []int{1})
	cache.SetJSON(ctx, "cache:post:detail:a", 1)
	cache.SetJSON(ctx, "cache:user:a", 1)

	cache.InvalidateByPrefix(ctx, "cache:post")
	assert.False(t, mr.Exists("cache:posts:list"))
	assert.False(t, mr.Exists("cache:post:detail:a"))
	assert.True(t, mr.Exists("cache:user:a"))
}

func TestCacheWithoutRedisIsAMiss(t *testing.T) {
	ctx := context.Background()
	for _, cache := range []*Cache{nil, NewCache(nil, 0)} {
		cache.SetJSON(ctx, "k", 1)
		var v int
		assert.False(t, cache.GetJSON(ctx, "k", &v))
		cache.InvalidateByPrefix(ctx, "k")
	}
}

func TestCacheRedisDownIsAMiss(t *testing.T) {
	mr, rc := newMiniRedis(t)
	cache := NewCache(rc, time.Minute)
	mr.Close()

	var v int
	cache.SetJSON(context.Background(), "k", 1)
	assert.False(t, cache.GetJSON(context.Background(), "k", &v))
}
