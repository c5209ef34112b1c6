package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCounter caches each user's unread notification count. Every Invalidate bumps a
// per-user generation; Set only stores a count read under the current generation, so a
// count loaded before an invalidation can never overwrite it.
type UnreadCounter interface {
	// Get returns the cached count, or ok=false with the generation to pass to Set.
	Get(ctx context.Context, userID int64) (count, generation int64, ok bool, err error)
	// Set stores count unless the generation moved on since Get. It reports whether it stored.
	Set(ctx context.Context, userID, generation, count int64) (bool, error)
	Invalidate(ctx context.Context, userID int64) error
}

// RedisUnreadCounter stores counts under helpdesk:unread:<user id> and generations under
// helpdesk:unread:gen:<user id>.
type RedisUnreadCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisUnreadCounter builds a Redis-backed counter cache.
func NewRedisUnreadCounter(client *redis.Client, ttl time.Duration) *RedisUnreadCounter {
	return &RedisUnreadCounter{client: client, ttl: ttl}
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("helpdesk:unread:%d", userID)
}

func unreadGenerationKey(userID int64) string {
	return fmt.Sprintf("helpdesk:unread:gen:%d", userID)
}

// setUnreadIfGenerationScript writes the count only while the generation is unchanged.
// KEYS[1] = count key, KEYS[2] = generation key
// ARGV[1] = expected generation, ARGV[2] = count, ARGV[3] = TTL in milliseconds
// Returns 1 if stored, 0 if the generation moved on.
var setUnreadIfGenerationScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
    return 0
end
if tonumber(ARGV[3]) > 0 then
    redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
    redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

func (c *RedisUnreadCounter) Get(ctx context.Context, userID int64) (int64, int64, bool, error) {
	values, err := c.client.MGet(ctx, unreadKey(userID), unreadGenerationKey(userID)).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("read unread count: %w", err)
	}
	generation, _, err := parseCounterValue(values[1])
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse unread generation: %w", err)
	}
	count, ok, err := parseCounterValue(values[0])
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse unread count: %w", err)
	}
	return count, generation, ok, nil
}

func parseCounterValue(raw any) (int64, bool, error) {
	if raw == nil {
		return 0, false, nil
	}
	str, ok := raw.(string)
	if !ok {
		return 0, false, fmt.Errorf("unexpected value %T", raw)
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *RedisUnreadCounter) Set(ctx context.Context, userID, generation, count int64) (bool, error) {
	stored, err := setUnreadIfGenerationScript.Run(ctx, c.client,
		[]string{unreadKey(userID), unreadGenerationKey(userID)},
		generation, count, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("write unread count: %w", err)
	}
	return stored == 1, nil
}

func (c *RedisUnreadCounter) Invalidate(ctx context.Context, userID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, unreadGenerationKey(userID))
		pipe.Del(ctx, unreadKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate unread count: %w", err)
	}
	return nil
}

type unreadEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryUnreadCounter is the in-process fallback used without Redis.
type MemoryUnreadCounter struct {
	mu          sync.Mutex
	ttl         time.Duration
	entries     map[int64]unreadEntry
	generations map[int64]int64
	now         func() time.Time
}

// NewMemoryUnreadCounter constructs an in-process counter cache.
func NewMemoryUnreadCounter(ttl time.Duration) *MemoryUnreadCounter {
	return &MemoryUnreadCounter{
		ttl:         ttl,
		entries:     map[int64]unreadEntry{},
		generations: map[int64]int64{},
		now:         time.Now,
	}
}

func (c *MemoryUnreadCounter) Get(_ context.Context, userID int64) (int64, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	generation := c.generations[userID]
	entry, ok := c.entries[userID]
	if !ok {
		return 0, generation, false, nil
	}
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		delete(c.entries, userID)
		return 0, generation, false, nil
	}
	return entry.count, generation, true, nil
}

func (c *MemoryUnreadCounter) Set(_ context.Context, userID, generation, count int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != generation {
		return false, nil
	}
	c.entries[userID] = unreadEntry{count: count, expiresAt: c.now().Add(c.ttl)}
	return true, nil
}

func (c *MemoryUnreadCounter) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++
	delete(c.entries, userID)
	return nil
}
