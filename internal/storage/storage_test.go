package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore reports a version conflict for the first n saves.
type flakyStore struct {
	*Memory
	conflicts int
	saves     int
}

func (s *flakyStore) Save(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		return 0, ErrVersionConflict
	}
	return s.Memory.Save(ctx, key, data, expected)
}

func TestMemory_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	snap, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, snap.Exists())

	v, err := s.Save(ctx, "k", []byte("a"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = s.Save(ctx, "k", []byte("b"), 0)
	assert.ErrorIs(t, err, ErrVersionConflict)

	v, err = s.Save(ctx, "k", []byte("b"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	snap, err = s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "b", string(snap.Data))

	require.NoError(t, s.Delete(ctx, "k"))
	snap, err = s.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestUpdate_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Memory: NewMemory(), conflicts: 2}

	calls := 0
	err := Update(ctx, s, "k", func(data []byte) ([]byte, error) {
		calls++
		return []byte("done"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, s.saves)
}

func TestUpdate_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Memory: NewMemory(), conflicts: 100}

	err := Update(ctx, s, "k", func(data []byte) ([]byte, error) {
		return []byte("x"), nil
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, DefaultMaxAttempts, s.saves)
}

func TestUpdate_PropagatesFnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	boom := errors.New("boom")

	err := Update(ctx, s, "k", func(data []byte) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	snap, _ := s.Load(ctx, "k")
	assert.False(t, snap.Exists())
}

func TestUpdateJSON_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := UpdateJSON(ctx, s, "counter", func(n *int) error {
				*n++
				return nil
			})
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var n int
	found, err := LoadJSON(ctx, s, "counter", &n)
	require.NoError(t, err)
	assert.True(t, found)
	// Every successful update is counted exactly once.
	assert.Equal(t, 20-failures, n)
}

func TestLoadJSON_Missing(t *testing.T) {
	var v []string
	found, err := LoadJSON(context.Background(), NewMemory(), "nope", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cart:u1", CartKey("u1"))
	assert.Equal(t, "orders:u1", OrdersKey("u1"))
	assert.Equal(t, "session:abc", SessionKey("abc"))
	assert.Equal(t, "notifications:s1", NotificationsKey("s1"))
}
