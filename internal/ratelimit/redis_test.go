package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

func TestRedisLimiter_Allow(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisLimiter(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "gate:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "gate:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "4th request should be denied")

	allowed, err = limiter.Allow(ctx, "gate:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "keys are independent")
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisLimiter(client)
	ctx := context.Background()

	base := time.Now()
	limiter.now = func() time.Time { return base }
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "slide", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	limiter.now = func() time.Time { return base.Add(61 * time.Second) }
	allowed, err := limiter.Allow(ctx, "slide", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "old hits fall out of the window")
}

func TestRedisLimiter_Reset(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisLimiter(client)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "reset", 1, time.Minute)
	require.NoError(t, err)
	allowed, err := limiter.Allow(ctx, "reset", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "reset"))
	allowed, err = limiter.Allow(ctx, "reset", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_ZeroLimitAllows(t *testing.T) {
	limiter := NewRedisLimiter(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	allowed, err := limiter.Allow(context.Background(), "any", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
