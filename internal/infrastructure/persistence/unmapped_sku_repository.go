package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormUnmappedSkuRepository implements UnmappedSkuRepository using GORM
type GormUnmappedSkuRepository struct {
	db *gorm.DB
}

// NewGormUnmappedSkuRepository creates a new GormUnmappedSkuRepository
func NewGormUnmappedSkuRepository(db *gorm.DB) *GormUnmappedSkuRepository {
	return &GormUnmappedSkuRepository{db: db}
}

// Save creates or updates an entry
func (r *GormUnmappedSkuRepository) Save(ctx context.Context, entry *stocksync.UnmappedSku) error {
	model := models.UnmappedSkuModelFromDomain(entry)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByStoreAndSku finds an entry by (storeID, sku)
func (r *GormUnmappedSkuRepository) FindByStoreAndSku(ctx context.Context, storeID uuid.UUID, sku string) (*stocksync.UnmappedSku, error) {
	var model models.UnmappedSkuModel
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

// FindUnresolved lists unresolved entries for a store, most recent first
func (r *GormUnmappedSkuRepository) FindUnresolved(ctx context.Context, storeID uuid.UUID) ([]stocksync.UnmappedSku, error) {
	var skuModels []models.UnmappedSkuModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND resolved = FALSE", storeID).
		Order("last_seen_at DESC").
		Find(&skuModels).Error; err != nil {
		return nil, err
	}
	entries := make([]stocksync.UnmappedSku, len(skuModels))
	for i, model := range skuModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormUnmappedSkuRepository implements UnmappedSkuRepository
var _ stocksync.UnmappedSkuRepository = (*GormUnmappedSkuRepository)(nil)
