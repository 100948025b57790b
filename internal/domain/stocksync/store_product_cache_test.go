package stocksync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStoreProductCache_SetQuantity(t *testing.T) {
	c := NewStoreProductCache(uuid.New(), "SKU-1", 10, CacheModifiedByPull)

	c.SetQuantity(4, CacheModifiedByPush)
	assert.Equal(t, int64(4), c.StockQuantity)
	assert.Equal(t, CacheModifiedByPush, c.LastModifiedBy)
}

func TestStoreProductCache_ApplyDelta(t *testing.T) {
	c := NewStoreProductCache(uuid.New(), "SKU-1", 10, CacheModifiedByPull)

	c.ApplyDelta(-3, CacheModifiedByPush)
	assert.Equal(t, int64(7), c.StockQuantity)

	c.ApplyDelta(5, CacheModifiedByPush)
	assert.Equal(t, int64(12), c.StockQuantity)
}

func TestStoreProductCache_ApplyDelta_ClampsAtZero(t *testing.T) {
	c := NewStoreProductCache(uuid.New(), "SKU-1", 2, CacheModifiedByPull)

	c.ApplyDelta(-9, CacheModifiedByPush)
	assert.Equal(t, int64(0), c.StockQuantity)
}

func TestUnmappedSku_RecordOccurrence(t *testing.T) {
	u := NewUnmappedSku(uuid.New(), "GHOST-1", CategoryNotFoundLedger)
	assert.Equal(t, 1, u.Occurrences)

	u.Resolve()
	assert.True(t, u.Resolved)

	u.RecordOccurrence(CategoryNotFoundLedger)
	assert.Equal(t, 2, u.Occurrences)
	assert.False(t, u.Resolved)
}
