package storage

import (
	"context"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu sync.RWMutex
	m  map[string]Snapshot
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]Snapshot)}
}

func (s *Memory) Load(ctx context.Context, key string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.m[key]
	if !ok {
		return Snapshot{}, nil
	}
	return Snapshot{Data: append([]byte(nil), snap.Data...), Version: snap.Version}, nil
}

func (s *Memory) Save(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.m[key]
	if current.Version != expectedVersion {
		return 0, ErrVersionConflict
	}
	next := Snapshot{Data: append([]byte(nil), data...), Version: current.Version + 1}
	s.m[key] = next
	return next.Version, nil
}

func (s *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
