package stocksync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

// LockManager provides per-store mutual exclusion backed by the relational
// store. Push and pull are mutually exclusive for the same store: a holder in
// either direction blocks acquisition in both. Contention is signaled by a
// nil lock, not an error; expired locks are passively reaped before every
// acquisition attempt.
type LockManager struct {
	locks syncdomain.LockRepository
}

// NewLockManager creates a LockManager
func NewLockManager(locks syncdomain.LockRepository) *LockManager {
	return &LockManager{locks: locks}
}

// Acquire attempts to take the (storeID, direction) lock for the given TTL.
// Returns (nil, nil) when another owner currently holds a non-expired lock
// for the store, in either direction.
func (m *LockManager) Acquire(ctx context.Context, storeID uuid.UUID, direction syncdomain.LockDirection, ttl time.Duration) (*syncdomain.SyncLock, error) {
	if _, err := m.locks.DeleteExpired(ctx, time.Now()); err != nil {
		return nil, err
	}
	// A pull must not run concurrently with a push for the same store, and
	// vice versa: a live lock in the opposite direction is contention too.
	if _, err := m.locks.Find(ctx, storeID, direction.Opposite()); err == nil {
		return nil, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	lock, err := syncdomain.NewSyncLock(storeID, direction, uuid.NewString(), ttl)
	if err != nil {
		return nil, err
	}
	if err := m.locks.Insert(ctx, lock); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, nil
		}
		return nil, err
	}
	return lock, nil
}

// Release removes the lock for (storeID, direction). Releasing a lock that
// no longer exists is not an error.
func (m *LockManager) Release(ctx context.Context, storeID uuid.UUID, direction syncdomain.LockDirection) error {
	err := m.locks.Delete(ctx, storeID, direction)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

// ReleaseAll removes every lock for a store across both directions. This is
// the documented legacy-compatibility path: callers that cannot name the
// direction clear the whole store. The worker and the pull engine never use
// it; they always release direction-scoped.
func (m *LockManager) ReleaseAll(ctx context.Context, storeID uuid.UUID) error {
	return m.locks.DeleteAllForStore(ctx, storeID)
}

// HasActiveLock reports whether a non-expired lock exists for the store and
// direction, reaping expired rows first.
func (m *LockManager) HasActiveLock(ctx context.Context, storeID uuid.UUID, direction syncdomain.LockDirection) (bool, error) {
	if _, err := m.locks.DeleteExpired(ctx, time.Now()); err != nil {
		return false, err
	}
	_, err := m.locks.Find(ctx, storeID, direction)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
