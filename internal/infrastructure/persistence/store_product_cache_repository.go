package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormStoreProductCacheRepository implements StoreProductCacheRepository using GORM
type GormStoreProductCacheRepository struct {
	db *gorm.DB
}

// NewGormStoreProductCacheRepository creates a new GormStoreProductCacheRepository
func NewGormStoreProductCacheRepository(db *gorm.DB) *GormStoreProductCacheRepository {
	return &GormStoreProductCacheRepository{db: db}
}

// Save upserts a cache entry on its (store_id, sku) key. Concurrent pull and
// push writers may race on the same SKU; last write wins, which is acceptable
// for a projection the post-push pull corrects anyway.
func (r *GormStoreProductCacheRepository) Save(ctx context.Context, entry *stocksync.StoreProductCache) error {
	model := models.StoreProductCacheModelFromDomain(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "store_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stock_quantity", "last_modified_at", "last_modified_by", "updated_at",
			}),
		}).
		Create(model).Error
}

// FindByStoreAndSku finds an entry by (storeID, sku)
func (r *GormStoreProductCacheRepository) FindByStoreAndSku(ctx context.Context, storeID uuid.UUID, sku string) (*stocksync.StoreProductCache, error) {
	var model models.StoreProductCacheModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND sku = ?", storeID, sku).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStore lists all cached entries for a store
func (r *GormStoreProductCacheRepository) FindByStore(ctx context.Context, storeID uuid.UUID) ([]stocksync.StoreProductCache, error) {
	var cacheModels []models.StoreProductCacheModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("sku ASC").
		Find(&cacheModels).Error; err != nil {
		return nil, err
	}
	entries := make([]stocksync.StoreProductCache, len(cacheModels))
	for i, model := range cacheModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormStoreProductCacheRepository implements StoreProductCacheRepository
var _ stocksync.StoreProductCacheRepository = (*GormStoreProductCacheRepository)(nil)
