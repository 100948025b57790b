package stocksync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MovementFilter defines filter criteria for listing movements
type MovementFilter struct {
	StoreID   *uuid.UUID
	Status    *MovementStatus
	Direction *MovementDirection
	Sku       string
	Page      int
	PageSize  int
}

// MovementRepository persists the durable movement queue
type MovementRepository interface {
	// Save creates or updates a movement
	Save(ctx context.Context, movement *Movement) error

	// FindByID finds a movement by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)

	// FindByDedupKey performs the indexed point lookup on the natural key
	// (storeID, orderID, sku, direction). Returns shared.ErrNotFound when no
	// movement exists for the key.
	FindByDedupKey(ctx context.Context, storeID uuid.UUID, orderID, sku string, direction MovementDirection) (*Movement, error)

	// FindDue returns pending movements whose nextAttemptAt has passed (or is
	// unset) and whose attempts are under the limit, ordered by creation time.
	FindDue(ctx context.Context, now time.Time, limit int) ([]Movement, error)

	// FindAll lists movements matching the filter
	FindAll(ctx context.Context, filter MovementFilter) ([]Movement, int64, error)
}

// LockRepository persists cross-process sync locks
type LockRepository interface {
	// Insert inserts a lock row. A unique-index violation on
	// (storeID, direction) is reported as shared.ErrAlreadyExists.
	Insert(ctx context.Context, lock *SyncLock) error

	// DeleteExpired reaps all locks whose TTL has elapsed
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Delete removes the lock for (storeID, direction)
	Delete(ctx context.Context, storeID uuid.UUID, direction LockDirection) error

	// DeleteAllForStore removes every lock held for a store, both directions
	DeleteAllForStore(ctx context.Context, storeID uuid.UUID) error

	// Find returns the current lock for (storeID, direction), expired or not
	Find(ctx context.Context, storeID uuid.UUID, direction LockDirection) (*SyncLock, error)
}

// StoreProductCacheRepository persists the UI-facing stock projection
type StoreProductCacheRepository interface {
	// Save creates or updates a cache entry
	Save(ctx context.Context, entry *StoreProductCache) error

	// FindByStoreAndSku finds an entry by (storeID, sku)
	FindByStoreAndSku(ctx context.Context, storeID uuid.UUID, sku string) (*StoreProductCache, error)

	// FindByStore lists all cached entries for a store
	FindByStore(ctx context.Context, storeID uuid.UUID) ([]StoreProductCache, error)
}

// UnmappedSkuRepository persists mapping-gap tracking entries
type UnmappedSkuRepository interface {
	// Save creates or updates an entry
	Save(ctx context.Context, entry *UnmappedSku) error

	// FindByStoreAndSku finds an entry by (storeID, sku)
	FindByStoreAndSku(ctx context.Context, storeID uuid.UUID, sku string) (*UnmappedSku, error)

	// FindUnresolved lists unresolved entries for a store
	FindUnresolved(ctx context.Context, storeID uuid.UUID) ([]UnmappedSku, error)
}

// SyncLogFilter defines filter criteria for listing sync logs
type SyncLogFilter struct {
	Kind      *SyncKind
	Status    *SyncRunStatus
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// SyncLogRepository persists the append-only audit trail
type SyncLogRepository interface {
	// Save persists a log with its items
	Save(ctx context.Context, log *SyncLog) error

	// FindByID finds a log (with items) by ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncLog, error)

	// FindByStore lists logs for a store matching the filter
	FindByStore(ctx context.Context, storeID uuid.UUID, filter SyncLogFilter) ([]SyncLog, int64, error)
}
