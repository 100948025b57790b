package stocksync

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
)

var (
	ErrLockInvalidDirection = errors.New("stocksync: invalid lock direction")
	ErrLockInvalidTTL       = errors.New("stocksync: lock TTL must be positive")
)

// ---------------------------------------------------------------------------
// LockDirection
// ---------------------------------------------------------------------------

// LockDirection identifies which synchronization path holds a store lock
type LockDirection string

const (
	// LockPull guards ledger-to-storefront reconciliation
	LockPull LockDirection = "PULL"
	// LockPush guards storefront-to-ledger movement posting
	LockPush LockDirection = "PUSH"
)

// IsValid returns true if the direction is valid
func (d LockDirection) IsValid() bool {
	switch d {
	case LockPull, LockPush:
		return true
	default:
		return false
	}
}

// String returns the string representation of LockDirection
func (d LockDirection) String() string {
	return string(d)
}

// Opposite returns the other direction
func (d LockDirection) Opposite() LockDirection {
	if d == LockPull {
		return LockPush
	}
	return LockPull
}

// ---------------------------------------------------------------------------
// SyncLock
// ---------------------------------------------------------------------------

// SyncLock is an advisory cross-process lock scoped to (store, direction).
// At most one non-expired lock may exist per key, enforced by a unique index
// rather than application-side coordination. Locks are advisory: every stock
// mutating path must be funneled through the worker, which always acquires
// before mutating.
type SyncLock struct {
	shared.BaseEntity
	StoreID    uuid.UUID
	Direction  LockDirection
	OwnerToken string
	ExpiresAt  time.Time
}

// NewSyncLock creates a lock for the given store and direction
func NewSyncLock(storeID uuid.UUID, direction LockDirection, ownerToken string, ttl time.Duration) (*SyncLock, error) {
	if !direction.IsValid() {
		return nil, ErrLockInvalidDirection
	}
	if ttl <= 0 {
		return nil, ErrLockInvalidTTL
	}
	return &SyncLock{
		BaseEntity: shared.NewBaseEntity(),
		StoreID:    storeID,
		Direction:  direction,
		OwnerToken: ownerToken,
		ExpiresAt:  time.Now().Add(ttl),
	}, nil
}

// IsExpired returns true if the lock TTL has elapsed
func (l *SyncLock) IsExpired() bool {
	return time.Now().After(l.ExpiresAt)
}
