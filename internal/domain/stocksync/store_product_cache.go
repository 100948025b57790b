package stocksync

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
)

// CacheModifier records which path last wrote a cache entry
type CacheModifier string

const (
	CacheModifiedByPull   CacheModifier = "PULL"
	CacheModifiedByPush   CacheModifier = "PUSH"
	CacheModifiedByManual CacheModifier = "MANUAL"
)

// IsValid returns true if the modifier is valid
func (m CacheModifier) IsValid() bool {
	switch m {
	case CacheModifiedByPull, CacheModifiedByPush, CacheModifiedByManual:
		return true
	default:
		return false
	}
}

// StoreProductCache is the denormalized last-known stock quantity per
// (store, SKU). It is a UI-facing projection only and is never read as an
// input to correctness decisions; the ledger remains the source of truth.
type StoreProductCache struct {
	shared.BaseEntity
	StoreID        uuid.UUID
	Sku            string
	StockQuantity  int64
	LastModifiedAt time.Time
	LastModifiedBy CacheModifier
}

// NewStoreProductCache creates a cache entry
func NewStoreProductCache(storeID uuid.UUID, sku string, quantity int64, modifier CacheModifier) *StoreProductCache {
	return &StoreProductCache{
		BaseEntity:     shared.NewBaseEntity(),
		StoreID:        storeID,
		Sku:            sku,
		StockQuantity:  quantity,
		LastModifiedAt: time.Now(),
		LastModifiedBy: modifier,
	}
}

// SetQuantity overwrites the cached quantity
func (c *StoreProductCache) SetQuantity(quantity int64, modifier CacheModifier) {
	c.StockQuantity = quantity
	c.LastModifiedAt = time.Now()
	c.LastModifiedBy = modifier
	c.Touch()
}

// ApplyDelta applies a signed stock delta, clamping at zero
func (c *StoreProductCache) ApplyDelta(delta int64, modifier CacheModifier) {
	q := c.StockQuantity + delta
	if q < 0 {
		q = 0
	}
	c.SetQuantity(q, modifier)
}
