package locking

import (
	"context"
	"sync"

	"courtside/pkg/clock"
	"courtside/pkg/model"
)

// MemoryStore is a process-local Store. It backs single-node deployments and
// concurrency tests; the mutex gives the same atomicity the database stores
// provide.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]*model.Lock
	clk   clock.Clock
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		locks: make(map[string]*model.Lock),
		clk:   clk,
	}
}

func (s *MemoryStore) Insert(ctx context.Context, lock *model.Lock) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.locks[lock.Key]; ok && !existing.Expired(s.clk.Now()) {
		return false, nil
	}
	copied := *lock
	s.locks[lock.Key] = &copied
	return true, nil
}

func (s *MemoryStore) DeleteOwned(ctx context.Context, key, owner string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.locks[key]
	if !ok || existing.Owner != owner {
		return false, nil
	}
	delete(s.locks, key)
	return true, nil
}
