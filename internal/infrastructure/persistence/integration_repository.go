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

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, i *store.Integration) error {
	model := models.IntegrationModelFromDomain(i)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByStore finds the integration for a store
func (r *GormIntegrationRepository) FindByStore(ctx context.Context, storeID uuid.UUID) (*store.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEnabled lists all enabled integrations
func (r *GormIntegrationRepository) FindEnabled(ctx context.Context) ([]store.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("enabled = TRUE").
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}
	integrations := make([]store.Integration, len(integrationModels))
	for i, model := range integrationModels {
		integrations[i] = *model.ToDomain()
	}
	return integrations, nil
}

// Ensure GormIntegrationRepository implements IntegrationRepository
var _ store.IntegrationRepository = (*GormIntegrationRepository)(nil)
