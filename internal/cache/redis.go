package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(addr, password string, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ Connected to Redis", zap.String("addr", addr))

	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// setIfNewer writes a {data, version} hash unless the cached version is
// already the same or newer.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'version', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// GetSnapshot retrieves a cached snapshot. It returns redis.Nil on a miss.
func (c *RedisCache) GetSnapshot(ctx context.Context, key string) (storage.Snapshot, error) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return storage.Snapshot{}, err
	}
	if len(fields) == 0 {
		return storage.Snapshot{}, redis.Nil
	}
	return parseSnapshot(fields)
}

// SetSnapshot caches snap unless a newer version is already cached, and
// reports whether it was written.
func (c *RedisCache) SetSnapshot(ctx context.Context, key string, snap storage.Snapshot) (bool, error) {
	n, err := setIfNewer.Run(ctx, c.client, []string{key}, snap.Data, snap.Version, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return n == 1, nil
}

// Delete removes key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeleteByPattern removes all keys matching pattern
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}

	return nil
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
