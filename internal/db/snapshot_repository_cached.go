package db

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/cache"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

// SnapshotCache is the part of cache.RedisCache the cached repository needs.
// SetSnapshot must refuse to replace a newer cached version.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, key string) (storage.Snapshot, error)
	SetSnapshot(ctx context.Context, key string, snap storage.Snapshot) (bool, error)
	Delete(ctx context.Context, key string) error
}

var _ SnapshotCache = (*cache.RedisCache)(nil)

// CachedSnapshotRepository puts a read-through, write-through cache in front
// of a store. Cached entries only ever move forward in version, so a reader
// that loaded before a write cannot put the older snapshot back.
type CachedSnapshotRepository struct {
	repo   storage.Store
	cache  SnapshotCache
	logger *zap.Logger
}

func NewCachedSnapshotRepository(repo storage.Store, c SnapshotCache, logger *zap.Logger) *CachedSnapshotRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSnapshotRepository{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// Cache key helper
func snapshotCacheKey(key string) string {
	return "snapshot:" + key
}

// Load returns a snapshot (with caching)
func (r *CachedSnapshotRepository) Load(ctx context.Context, key string) (storage.Snapshot, error) {
	// Try cache first
	snap, err := r.cache.GetSnapshot(ctx, snapshotCacheKey(key))
	switch {
	case err == nil && len(snap.Data) > 0:
		r.logger.Debug("📦 Cache HIT", zap.String("key", key))
		return snap, nil
	case err == nil:
		// Tombstone left by Delete; the database decides.
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("⚠️ Cache error", zap.String("key", key), zap.Error(err))
	}

	// Cache miss - get from database
	r.logger.Debug("💾 Cache MISS - fetching from DB", zap.String("key", key))
	snap, err = r.repo.Load(ctx, key)
	if err != nil {
		return storage.Snapshot{}, err
	}

	if snap.Exists() {
		r.fill(ctx, key, snap)
	}
	return snap, nil
}

// Save writes to the database and then caches the new version. After a
// version conflict the cache is refreshed from the database so the retry
// reads the winner's snapshot.
func (r *CachedSnapshotRepository) Save(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	version, err := r.repo.Save(ctx, key, data, expectedVersion)
	switch {
	case err == nil:
		r.fill(ctx, key, storage.Snapshot{Data: data, Version: version})
		return version, nil
	case errors.Is(err, storage.ErrVersionConflict):
		r.refresh(ctx, key)
		return 0, err
	default:
		r.invalidate(ctx, key)
		return 0, err
	}
}

// Delete removes a snapshot and leaves an empty tombstone one version ahead
// of it in the cache, so a reader still holding the deleted snapshot cannot
// cache it again.
func (r *CachedSnapshotRepository) Delete(ctx context.Context, key string) error {
	current, err := r.repo.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, key); err != nil {
		return err
	}

	r.invalidate(ctx, key)
	if current.Exists() {
		r.fill(ctx, key, storage.Snapshot{Version: current.Version + 1})
	}
	return nil
}

func (r *CachedSnapshotRepository) fill(ctx context.Context, key string, snap storage.Snapshot) {
	stored, err := r.cache.SetSnapshot(ctx, snapshotCacheKey(key), snap)
	if err != nil {
		r.logger.Warn("⚠️ Failed to cache snapshot", zap.String("key", key), zap.Error(err))
		r.invalidate(ctx, key)
		return
	}
	if !stored {
		r.logger.Debug("📦 Newer snapshot already cached", zap.String("key", key), zap.Int64("version", snap.Version))
	}
}

// refresh replaces the cached entry with what the database holds now.
func (r *CachedSnapshotRepository) refresh(ctx context.Context, key string) {
	r.invalidate(ctx, key)
	snap, err := r.repo.Load(ctx, key)
	if err != nil || !snap.Exists() {
		return
	}
	r.fill(ctx, key, snap)
}

func (r *CachedSnapshotRepository) invalidate(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, snapshotCacheKey(key)); err != nil {
		r.logger.Warn("⚠️ Failed to invalidate cache", zap.String("key", key), zap.Error(err))
		return
	}
	r.logger.Debug("🗑️ Cache invalidated", zap.String("key", key))
}
