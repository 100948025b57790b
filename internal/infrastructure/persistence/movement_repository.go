package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormMovementRepository) WithTx(tx *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: tx}
}

// Save creates or updates a movement. A unique violation on the dedup index
// surfaces as shared.ErrAlreadyExists so callers can treat the race as a
// duplicate delivery.
func (r *GormMovementRepository) Save(ctx context.Context, movement *stocksync.Movement) error {
	model := models.MovementModelFromDomain(movement)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a movement by its ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*stocksync.Movement, error) {
	var model models.MovementModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDedupKey performs the indexed point lookup on the natural key
func (r *GormMovementRepository) FindByDedupKey(ctx context.Context, storeID uuid.UUID, orderID, sku string, direction stocksync.MovementDirection) (*stocksync.Movement, error) {
	var model models.MovementModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND order_id = ? AND sku = ? AND direction = ?", storeID, orderID, sku, direction.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDue returns pending movements whose retry time has passed, oldest first
func (r *GormMovementRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]stocksync.Movement, error) {
	var movementModels []models.MovementModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < max_attempts AND (next_attempt_at IS NULL OR next_attempt_at <= ?)",
			stocksync.MovementStatusPending.String(), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&movementModels).Error; err != nil {
		return nil, err
	}
	movements := make([]stocksync.Movement, len(movementModels))
	for i, model := range movementModels {
		movements[i] = *model.ToDomain()
	}
	return movements, nil
}

// FindAll lists movements matching the filter with a total count
func (r *GormMovementRepository) FindAll(ctx context.Context, filter stocksync.MovementFilter) ([]stocksync.Movement, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MovementModel{})

	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", filter.Direction.String())
	}
	if filter.Sku != "" {
		query = query.Where("sku = ?", filter.Sku)
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

	var movementModels []models.MovementModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&movementModels).Error; err != nil {
		return nil, 0, err
	}

	movements := make([]stocksync.Movement, len(movementModels))
	for i, model := range movementModels {
		movements[i] = *model.ToDomain()
	}
	return movements, total, nil
}

// isUniqueViolation detects a Postgres unique-index violation. The pgx error
// text always carries SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key value")
}

// Ensure GormMovementRepository implements MovementRepository
var _ stocksync.MovementRepository = (*GormMovementRepository)(nil)
