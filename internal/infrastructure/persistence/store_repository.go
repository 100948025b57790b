package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/store"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormStoreRepository implements StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// Save creates or updates a store
func (r *GormStoreRepository) Save(ctx context.Context, s *store.Store) error {
	model := models.StoreModelFromDomain(s)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a store by its ID
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive lists all active stores
func (r *GormStoreRepository) FindActive(ctx context.Context) ([]store.Store, error) {
	var storeModels []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("active = TRUE").
		Order("created_at ASC").
		Find(&storeModels).Error; err != nil {
		return nil, err
	}
	stores := make([]store.Store, len(storeModels))
	for i, model := range storeModels {
		stores[i] = *model.ToDomain()
	}
	return stores, nil
}

// FindByTenant lists all stores of a tenant
func (r *GormStoreRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]store.Store, error) {
	var storeModels []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&storeModels).Error; err != nil {
		return nil, err
	}
	stores := make([]store.Store, len(storeModels))
	for i, model := range storeModels {
		stores[i] = *model.ToDomain()
	}
	return stores, nil
}

// Ensure GormStoreRepository implements StoreRepository
var _ store.StoreRepository = (*GormStoreRepository)(nil)
