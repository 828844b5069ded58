package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

const (
	fieldData    = "data"
	fieldVersion = "version"
)

// RedisStore keeps snapshots as hashes {data, version} and guards saves with
// WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(c *RedisCache, prefix string) *RedisStore {
	return &RedisStore{client: c.client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Load(ctx context.Context, key string) (storage.Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if len(fields) == 0 {
		return storage.Snapshot{}, nil
	}
	return parseSnapshot(fields)
}

func parseSnapshot(fields map[string]string) (storage.Snapshot, error) {
	version, err := strconv.ParseInt(fields[fieldVersion], 10, 64)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("failed to parse snapshot version: %w", err)
	}
	return storage.Snapshot{Data: []byte(fields[fieldData]), Version: version}, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	k := s.key(key)
	var newVersion int64

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}

		if current != expectedVersion {
			return storage.ErrVersionConflict
		}

		newVersion = current + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldData, data, fieldVersion, newVersion)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return newVersion, nil
	case errors.Is(err, storage.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, storage.ErrVersionConflict
	default:
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
