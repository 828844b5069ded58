package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

// SnapshotRepository is a storage.Store over the snapshots table.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(database *PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: database.Conn}
}

// Load returns the snapshot stored under key
func (r *SnapshotRepository) Load(ctx context.Context, key string) (storage.Snapshot, error) {
	query := "SELECT data, version FROM snapshots WHERE key = $1"

	var snap storage.Snapshot
	err := r.db.QueryRowContext(ctx, query, key).Scan(&snap.Data, &snap.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Snapshot{}, nil
		}
		return storage.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return snap, nil
}

// Save inserts or updates a snapshot if its version still matches
func (r *SnapshotRepository) Save(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	var (
		result sql.Result
		err    error
	)

	if expectedVersion == 0 {
		query := `
			INSERT INTO snapshots (key, data, version, updated_at)
			VALUES ($1, $2, 1, NOW())
			ON CONFLICT (key) DO NOTHING
		`
		result, err = r.db.ExecContext(ctx, query, key, data)
	} else {
		query := `
			UPDATE snapshots SET data = $1, version = version + 1, updated_at = NOW()
			WHERE key = $2 AND version = $3
		`
		result, err = r.db.ExecContext(ctx, query, data, key, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	if rowsAffected == 0 {
		return 0, storage.ErrVersionConflict
	}

	return expectedVersion + 1, nil
}

// Delete removes a snapshot
func (r *SnapshotRepository) Delete(ctx context.Context, key string) error {
	query := "DELETE FROM snapshots WHERE key = $1"

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return nil
}
