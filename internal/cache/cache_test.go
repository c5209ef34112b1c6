package cache

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

func exerciseUnreadCounter(t *testing.T, counter UnreadCounter) {
	ctx := context.Background()

	_, generation, ok, err := counter.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := counter.Set(ctx, 7, generation, 3)
	require.NoError(t, err)
	assert.True(t, stored)
	count, _, ok, err := counter.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 3, count)

	require.NoError(t, counter.Invalidate(ctx, 7))
	_, _, ok, err = counter.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

// A count loaded before an invalidation must not land in the cache afterwards.
func exerciseStaleWriteRejected(t *testing.T, counter UnreadCounter) {
	ctx := context.Background()

	_, before, ok, err := counter.Get(ctx, 9)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, counter.Invalidate(ctx, 9))

	stored, err := counter.Set(ctx, 9, before, 4)
	require.NoError(t, err)
	assert.False(t, stored)
	_, after, ok, err := counter.Get(ctx, 9)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEqual(t, before, after)

	stored, err = counter.Set(ctx, 9, after, 0)
	require.NoError(t, err)
	assert.True(t, stored)
	count, _, ok, err := counter.Get(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, count)
}

func TestMemoryUnreadCounter(t *testing.T) {
	exerciseUnreadCounter(t, NewMemoryUnreadCounter(time.Minute))
	exerciseStaleWriteRejected(t, NewMemoryUnreadCounter(time.Minute))
}

func TestMemoryUnreadCounterExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	counter := NewMemoryUnreadCounter(time.Minute)
	counter.now = func() time.Time { return now }

	_, err := counter.Set(context.Background(), 1, 0, 5)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, _, ok, err := counter.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreadCounter(t *testing.T) {
	client := setupTestRedis(t)
	exerciseUnreadCounter(t, NewRedisUnreadCounter(client, time.Minute))
	exerciseStaleWriteRejected(t, NewRedisUnreadCounter(client, time.Minute))
}

func exerciseRevocationList(t *testing.T, list RevocationList) {
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "abc", time.Now().Add(time.Hour)))
	revoked, err = list.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, list.Revoke(ctx, "expired", time.Now().Add(-time.Minute)))
	revoked, err = list.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationList(t *testing.T) {
	exerciseRevocationList(t, NewMemoryRevocationList())
}

func TestRedisRevocationList(t *testing.T) {
	exerciseRevocationList(t, NewRedisRevocationList(setupTestRedis(t)))
}
