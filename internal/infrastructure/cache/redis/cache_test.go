// internal/infrastructure/cache/redis/cache_test.go
package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Без Redis мост продолжает работать: nil-кэш ведет себя как no-op
func TestNilCacheDegradesToNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	seen, err := cache.SeenMessage(ctx, "123", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	assert.NoError(t, cache.SnapshotStats(ctx, map[string]int{"total": 1}))
	assert.NoError(t, cache.Delete(ctx, "key"))
	assert.NoError(t, cache.Close())

	var dest string
	err = cache.Get(ctx, "key", &dest)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSeenMessageEmptyID(t *testing.T) {
	cache := NewCacheWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))

	seen, err := cache.SeenMessage(context.Background(), "", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)
}
