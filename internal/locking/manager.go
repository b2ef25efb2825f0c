package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtside/pkg/clock"
	"courtside/pkg/logger"
	"courtside/pkg/model"
)

// ErrLockTimeout is returned by WithLock when the lock could not be acquired
// within the configured retry budget.
var ErrLockTimeout = errors.New("timed out acquiring lock")

// Status is the tagged result of an acquisition attempt. Busy is an expected,
// frequent outcome and is not modeled as an error.
type Status int

const (
	StatusAcquired Status = iota
	StatusBusy
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAcquired:
		return "acquired"
	case StatusBusy:
		return "busy"
	default:
		return "error"
	}
}

// Outcome carries the status of an acquisition attempt; Err is set only when
// Status is StatusError.
type Outcome struct {
	Status Status
	Err    error
}

// Store is the persistence contract for lock records. Insert must be a single
// atomic insert-if-absent-or-expired operation: when two callers race on the
// same key, exactly one observes ok=true. This property carries the
// correctness of everything built on top.
type Store interface {
	Insert(ctx context.Context, lock *model.Lock) (bool, error)
	DeleteOwned(ctx context.Context, key, owner string) (bool, error)
}

type Manager struct {
	store Store
	clk   clock.Clock
	sleep clock.Sleeper
	log   *logger.Logger

	maxRetries int
	baseDelay  time.Duration
}

func NewManager(store Store, clk clock.Clock, sleep clock.Sleeper, log *logger.Logger, maxRetries int, baseDelay time.Duration) *Manager {
	return &Manager{
		store:      store,
		clk:        clk,
		sleep:      sleep,
		log:        log,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Acquire attempts a single atomic acquisition of key for owner.
func (m *Manager) Acquire(ctx context.Context, key, owner string, ttl time.Duration) Outcome {
	now := m.clk.Now()
	lock := &model.Lock{
		Key:        key,
		Owner:      owner,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	ok, err := m.store.Insert(ctx, lock)
	if err != nil {
		return Outcome{Status: StatusError, Err: fmt.Errorf("lock insert for %q: %w", key, err)}
	}
	if !ok {
		return Outcome{Status: StatusBusy}
	}
	return Outcome{Status: StatusAcquired}
}

// Release deletes the lock only when it is still owned by owner. Returns
// false when the lock is held by someone else or already gone.
func (m *Manager) Release(ctx context.Context, key, owner string) bool {
	deleted, err := m.store.DeleteOwned(ctx, key, owner)
	if err != nil {
		// TTL expiry will reclaim the record.
		m.log.Warn("Failed to release lock", "key", key, "owner", owner, "error", err)
		return false
	}
	return deleted
}

// AcquireWithRetry retries Acquire up to maxRetries additional times,
// sleeping baseDelay * 2^attempt between attempts. Gives up with StatusBusy
// instead of failing loudly; the caller decides what busy means.
func (m *Manager) AcquireWithRetry(ctx context.Context, key, owner string, ttl time.Duration, maxRetries int, baseDelay time.Duration) Outcome {
	outcome := m.Acquire(ctx, key, owner, ttl)
	for attempt := 0; attempt < maxRetries && outcome.Status == StatusBusy; attempt++ {
		delay := baseDelay << attempt
		if err := m.sleep.Sleep(ctx, delay); err != nil {
			return Outcome{Status: StatusError, Err: err}
		}
		outcome = m.Acquire(ctx, key, owner, ttl)
	}
	return outcome
}

// WithLock runs fn while holding key. Acquisition uses the manager's retry
// budget; exhaustion returns ErrLockTimeout. The lock is released on every
// exit path of fn, including panic.
func (m *Manager) WithLock(ctx context.Context, key, owner string, ttl time.Duration, fn func(ctx context.Context) error) error {
	outcome := m.AcquireWithRetry(ctx, key, owner, ttl, m.maxRetries, m.baseDelay)
	switch outcome.Status {
	case StatusBusy:
		return fmt.Errorf("%w: %s", ErrLockTimeout, key)
	case StatusError:
		return outcome.Err
	}

	defer func() {
		if !m.Release(ctx, key, owner) {
			m.log.Warn("Lock was not released cleanly", "key", key, "owner", owner)
		}
	}()

	return fn(ctx)
}
