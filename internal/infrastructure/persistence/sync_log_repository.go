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

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save persists a log header with its items in one transaction
func (r *GormSyncLogRepository) Save(ctx context.Context, log *stocksync.SyncLog) error {
	model := models.SyncLogModelFromDomain(log)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(model).Error
	})
}

// FindByID finds a log with its items by ID
func (r *GormSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*stocksync.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStore lists log headers for a store matching the filter. Items are
// not preloaded on list queries; use FindByID for the per-SKU detail.
func (r *GormSyncLogRepository) FindByStore(ctx context.Context, storeID uuid.UUID, filter stocksync.SyncLogFilter) ([]stocksync.SyncLog, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Where("store_id = ?", storeID)

	if filter.Kind != nil {
		query = query.Where("kind = ?", string(*filter.Kind))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.StartTime != nil {
		query = query.Where("started_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("started_at <= ?", *filter.EndTime)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var logModels []models.SyncLogModel
	if err := query.
		Order("started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logModels).Error; err != nil {
		return nil, 0, err
	}

	logs := make([]stocksync.SyncLog, len(logModels))
	for i, model := range logModels {
		logs[i] = *model.ToDomain()
	}
	return logs, total, nil
}

// Ensure GormSyncLogRepository implements SyncLogRepository
var _ stocksync.SyncLogRepository = (*GormSyncLogRepository)(nil)
