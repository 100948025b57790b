package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
)

// GormLockRepository implements LockRepository using GORM. Acquisition
// atomicity comes from the unique index on (store_id, direction): a plain
// INSERT either wins the key or fails with a unique violation, no SELECT
// FOR UPDATE needed.
type GormLockRepository struct {
	db *gorm.DB
}

// NewGormLockRepository creates a new GormLockRepository
func NewGormLockRepository(db *gorm.DB) *GormLockRepository {
	return &GormLockRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormLockRepository) WithTx(tx *gorm.DB) *GormLockRepository {
	return &GormLockRepository{db: tx}
}

// Insert inserts a lock row, reporting a unique violation as shared.ErrAlreadyExists
func (r *GormLockRepository) Insert(ctx context.Context, lock *stocksync.SyncLock) error {
	model := models.SyncLockModelFromDomain(lock)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteExpired reaps all locks whose TTL has elapsed and returns the count
func (r *GormLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.SyncLockModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// Delete removes the lock for (storeID, direction)
func (r *GormLockRepository) Delete(ctx context.Context, storeID uuid.UUID, direction stocksync.LockDirection) error {
	result := r.db.WithContext(ctx).
		Where("store_id = ? AND direction = ?", storeID, direction.String()).
		Delete(&models.SyncLockModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteAllForStore removes every lock held for a store, both directions
func (r *GormLockRepository) DeleteAllForStore(ctx context.Context, storeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Delete(&models.SyncLockModel{}).Error
}

// Find returns the current lock for (storeID, direction), expired or not
func (r *GormLockRepository) Find(ctx context.Context, storeID uuid.UUID, direction stocksync.LockDirection) (*stocksync.SyncLock, error) {
	var model models.SyncLockModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND direction = ?", storeID, direction.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormLockRepository implements LockRepository
var _ stocksync.LockRepository = (*GormLockRepository)(nil)
