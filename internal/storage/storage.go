// Package storage is the versioned key/value snapshot layer behind the
// catalog, carts, orders, sessions and seller inboxes.
//
// Every key holds one serialized snapshot and a version that increases by one
// on each save. Save is a compare-and-swap on that version, which is what makes
// the read-modify-write cycles in the domain packages safe for concurrent
// clients.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
)

// ErrVersionConflict is returned by Save when the stored version differs from
// the expected one.
var ErrVersionConflict = errors.New("snapshot version conflict")

// DefaultMaxAttempts bounds the retries of Update on version conflicts.
const DefaultMaxAttempts = 5

type Snapshot struct {
	Data    []byte `json:"data"`
	Version int64  `json:"version"`
}

// Exists reports whether the key has ever been saved.
func (s Snapshot) Exists() bool {
	return s.Version > 0
}

type Store interface {
	// Load returns the snapshot under key. A missing key is not an error; it
	// yields a zero Snapshot.
	Load(ctx context.Context, key string) (Snapshot, error)
	// Save writes data if the stored version equals expectedVersion (0 for a
	// new key) and returns the new version.
	Save(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Key helpers
func CatalogKey() string {
	return "catalog"
}

func CartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func OrdersKey(userID string) string {
	return fmt.Sprintf("orders:%s", userID)
}

func UsersKey() string {
	return "users"
}

func SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func NotificationsKey(sellerID string) string {
	return fmt.Sprintf("notifications:%s", sellerID)
}

// Update runs a read-modify-write cycle against key. fn receives the current
// data (nil for a missing key) and returns the data to store; it may run more
// than once and must not have side effects outside its return value.
func Update(ctx context.Context, s Store, key string, fn func(data []byte) ([]byte, error)) error {
	for attempt := 1; ; attempt++ {
		snap, err := s.Load(ctx, key)
		if err != nil {
			return apperr.Wrap(apperr.KindUnavailable, err, fmt.Sprintf("failed to load %s", key))
		}

		next, err := fn(snap.Data)
		if err != nil {
			return err
		}

		_, err = s.Save(ctx, key, next, snap.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return apperr.Wrap(apperr.KindUnavailable, err, fmt.Sprintf("failed to save %s", key))
		}
		if attempt >= DefaultMaxAttempts {
			return apperr.Wrap(apperr.KindConflict, err, fmt.Sprintf("too many concurrent writers on %s", key))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// LoadJSON decodes the snapshot under key into dest. It returns false when the
// key does not exist.
func LoadJSON(ctx context.Context, s Store, key string, dest interface{}) (bool, error) {
	snap, err := s.Load(ctx, key)
	if err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, err, fmt.Sprintf("failed to load %s", key))
	}
	if len(snap.Data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(snap.Data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// UpdateJSON is Update for JSON encoded values. fn gets a freshly decoded
// value on every attempt.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(value *T) error) error {
	return Update(ctx, s, key, func(data []byte) ([]byte, error) {
		var value T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &value); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
		}
		if err := fn(&value); err != nil {
			return nil, err
		}
		out, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return out, nil
	})
}
