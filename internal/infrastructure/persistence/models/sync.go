package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/stocksync"
)

// MovementModel is the persistence model for the durable movement queue. The
// unique index on (store_id, order_id, sku, direction) is the deduplication
// barrier for repeated webhook deliveries.
type MovementModel struct {
	BaseModel
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	StoreID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_movement_dedup,priority:1"`
	IntegrationID uuid.UUID  `gorm:"type:uuid;not null"`
	Direction     string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_movement_dedup,priority:4"`
	Sku           string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_movement_dedup,priority:3"`
	Quantity      int64      `gorm:"not null"`
	OrderID       string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_movement_dedup,priority:2"`
	EventType     string     `gorm:"type:varchar(64);not null"`
	Status        string     `gorm:"type:varchar(20);not null;index:idx_movement_due,priority:1"`
	Attempts      int        `gorm:"not null;default:0"`
	MaxAttempts   int        `gorm:"not null;default:5"`
	LastAttemptAt *time.Time
	NextAttemptAt *time.Time `gorm:"index:idx_movement_due,priority:2"`
	ProcessedAt   *time.Time
	ErrorMessage  string     `gorm:"type:text"`
	Metadata      string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain Movement
func (m *MovementModel) ToDomain() *stocksync.Movement {
	return &stocksync.Movement{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:      m.TenantID,
		StoreID:       m.StoreID,
		IntegrationID: m.IntegrationID,
		Direction:     stocksync.MovementDirection(m.Direction),
		Sku:           m.Sku,
		Quantity:      m.Quantity,
		OrderID:       m.OrderID,
		EventType:     m.EventType,
		Status:        stocksync.MovementStatus(m.Status),
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		LastAttemptAt: m.LastAttemptAt,
		NextAttemptAt: m.NextAttemptAt,
		ProcessedAt:   m.ProcessedAt,
		ErrorMessage:  m.ErrorMessage,
		Metadata:      m.Metadata,
	}
}

// MovementModelFromDomain creates a persistence model from a domain Movement
func MovementModelFromDomain(movement *stocksync.Movement) *MovementModel {
	m := &MovementModel{
		TenantID:      movement.TenantID,
		StoreID:       movement.StoreID,
		IntegrationID: movement.IntegrationID,
		Direction:     movement.Direction.String(),
		Sku:           movement.Sku,
		Quantity:      movement.Quantity,
		OrderID:       movement.OrderID,
		EventType:     movement.EventType,
		Status:        movement.Status.String(),
		Attempts:      movement.Attempts,
		MaxAttempts:   movement.MaxAttempts,
		LastAttemptAt: movement.LastAttemptAt,
		NextAttemptAt: movement.NextAttemptAt,
		ProcessedAt:   movement.ProcessedAt,
		ErrorMessage:  movement.ErrorMessage,
		Metadata:      movement.Metadata,
	}
	m.FromDomainBaseEntity(movement.BaseEntity)
	return m
}

// SyncLockModel is the persistence model for cross-process sync locks. The
// unique index on (store_id, direction) is what makes acquisition atomic:
// whoever inserts first wins, everyone else gets a unique violation.
type SyncLockModel struct {
	BaseModel
	StoreID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sync_lock_store_direction,priority:1"`
	Direction  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_sync_lock_store_direction,priority:2"`
	OwnerToken string    `gorm:"type:varchar(64);not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLockModel) TableName() string {
	return "sync_locks"
}

// ToDomain converts the persistence model to a domain SyncLock
func (m *SyncLockModel) ToDomain() *stocksync.SyncLock {
	return &stocksync.SyncLock{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		StoreID:    m.StoreID,
		Direction:  stocksync.LockDirection(m.Direction),
		OwnerToken: m.OwnerToken,
		ExpiresAt:  m.ExpiresAt,
	}
}

// SyncLockModelFromDomain creates a persistence model from a domain SyncLock
func SyncLockModelFromDomain(lock *stocksync.SyncLock) *SyncLockModel {
	m := &SyncLockModel{
		StoreID:    lock.StoreID,
		Direction:  lock.Direction.String(),
		OwnerToken: lock.OwnerToken,
		ExpiresAt:  lock.ExpiresAt,
	}
	m.FromDomainBaseEntity(lock.BaseEntity)
	return m
}

// StoreProductCacheModel is the persistence model for the stock projection
type StoreProductCacheModel struct {
	BaseModel
	StoreID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cache_store_sku,priority:1"`
	Sku            string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_cache_store_sku,priority:2"`
	StockQuantity  int64     `gorm:"not null;default:0"`
	LastModifiedAt time.Time `gorm:"not null"`
	LastModifiedBy string    `gorm:"type:varchar(10);not null"`
}

// TableName returns the table name for GORM
func (StoreProductCacheModel) TableName() string {
	return "store_product_cache"
}

// ToDomain converts the persistence model to a domain StoreProductCache
func (m *StoreProductCacheModel) ToDomain() *stocksync.StoreProductCache {
	return &stocksync.StoreProductCache{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		StoreID:        m.StoreID,
		Sku:            m.Sku,
		StockQuantity:  m.StockQuantity,
		LastModifiedAt: m.LastModifiedAt,
		LastModifiedBy: stocksync.CacheModifier(m.LastModifiedBy),
	}
}

// StoreProductCacheModelFromDomain creates a persistence model from a domain entry
func StoreProductCacheModelFromDomain(entry *stocksync.StoreProductCache) *StoreProductCacheModel {
	m := &StoreProductCacheModel{
		StoreID:        entry.StoreID,
		Sku:            entry.Sku,
		StockQuantity:  entry.StockQuantity,
		LastModifiedAt: entry.LastModifiedAt,
		LastModifiedBy: string(entry.LastModifiedBy),
	}
	m.FromDomainBaseEntity(entry.BaseEntity)
	return m
}

// UnmappedSkuModel is the persistence model for mapping-gap tracking
type UnmappedSkuModel struct {
	BaseModel
	StoreID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_unmapped_store_sku,priority:1"`
	Sku         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_unmapped_store_sku,priority:2"`
	Reason      string    `gorm:"type:text"`
	Occurrences int       `gorm:"not null;default:1"`
	LastSeenAt  time.Time `gorm:"not null"`
	Resolved    bool      `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (UnmappedSkuModel) TableName() string {
	return "unmapped_skus"
}

// ToDomain converts the persistence model to a domain UnmappedSku
func (m *UnmappedSkuModel) ToDomain() *stocksync.UnmappedSku {
	return &stocksync.UnmappedSku{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		StoreID:     m.StoreID,
		Sku:         m.Sku,
		Reason:      m.Reason,
		Occurrences: m.Occurrences,
		LastSeenAt:  m.LastSeenAt,
		Resolved:    m.Resolved,
	}
}

// UnmappedSkuModelFromDomain creates a persistence model from a domain entry
func UnmappedSkuModelFromDomain(entry *stocksync.UnmappedSku) *UnmappedSkuModel {
	m := &UnmappedSkuModel{
		StoreID:     entry.StoreID,
		Sku:         entry.Sku,
		Reason:      entry.Reason,
		Occurrences: entry.Occurrences,
		LastSeenAt:  entry.LastSeenAt,
		Resolved:    entry.Resolved,
	}
	m.FromDomainBaseEntity(entry.BaseEntity)
	return m
}

// SyncLogModel is the persistence model for the audit trail header
type SyncLogModel struct {
	BaseModel
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index"`
	StoreID      uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_log_store_started,priority:1"`
	Kind         string    `gorm:"type:varchar(10);not null"`
	Mode         string    `gorm:"type:varchar(15);not null"`
	Status       string    `gorm:"type:varchar(10);not null"`
	Trigger      string    `gorm:"type:varchar(64)"`
	DryRun       bool      `gorm:"not null;default:false"`
	StartedAt    time.Time `gorm:"not null;index:idx_sync_log_store_started,priority:2,sort:desc"`
	FinishedAt   *time.Time
	SuccessCount int    `gorm:"not null;default:0"`
	FailedCount  int    `gorm:"not null;default:0"`
	SkippedCount int    `gorm:"not null;default:0"`
	SkipReasons  string `gorm:"type:text"`
	Detail       string `gorm:"type:text"`
	// Associations
	Items []SyncLogItemModel `gorm:"foreignKey:SyncLogID;references:ID"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// SyncLogItemModel is the persistence model for per-SKU audit rows
type SyncLogItemModel struct {
	BaseModel
	SyncLogID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Sku         string    `gorm:"type:varchar(255);not null"`
	Outcome     string    `gorm:"type:varchar(10);not null"`
	Category    string    `gorm:"type:varchar(32)"`
	OldQuantity int64     `gorm:"not null;default:0"`
	NewQuantity int64     `gorm:"not null;default:0"`
	Message     string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncLogItemModel) TableName() string {
	return "sync_log_items"
}

// ToDomain converts the persistence model to a domain SyncLog with its items
func (m *SyncLogModel) ToDomain() *stocksync.SyncLog {
	log := &stocksync.SyncLog{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:     m.TenantID,
		StoreID:      m.StoreID,
		Kind:         stocksync.SyncKind(m.Kind),
		Mode:         stocksync.SyncMode(m.Mode),
		Status:       stocksync.SyncRunStatus(m.Status),
		Trigger:      m.Trigger,
		DryRun:       m.DryRun,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		SuccessCount: m.SuccessCount,
		FailedCount:  m.FailedCount,
		SkippedCount: m.SkippedCount,
		SkipReasons:  m.SkipReasons,
		Detail:       m.Detail,
		Items:        make([]stocksync.SyncLogItem, len(m.Items)),
	}
	for i, item := range m.Items {
		log.Items[i] = stocksync.SyncLogItem{
			BaseEntity: shared.BaseEntity{
				ID:        item.ID,
				CreatedAt: item.CreatedAt,
				UpdatedAt: item.UpdatedAt,
			},
			SyncLogID:   item.SyncLogID,
			Sku:         item.Sku,
			Outcome:     stocksync.ItemOutcome(item.Outcome),
			Category:    item.Category,
			OldQuantity: item.OldQuantity,
			NewQuantity: item.NewQuantity,
			Message:     item.Message,
		}
	}
	return log
}

// SyncLogModelFromDomain creates a persistence model from a domain SyncLog
func SyncLogModelFromDomain(log *stocksync.SyncLog) *SyncLogModel {
	m := &SyncLogModel{
		TenantID:     log.TenantID,
		StoreID:      log.StoreID,
		Kind:         string(log.Kind),
		Mode:         string(log.Mode),
		Status:       string(log.Status),
		Trigger:      log.Trigger,
		DryRun:       log.DryRun,
		StartedAt:    log.StartedAt,
		FinishedAt:   log.FinishedAt,
		SuccessCount: log.SuccessCount,
		FailedCount:  log.FailedCount,
		SkippedCount: log.SkippedCount,
		SkipReasons:  log.SkipReasons,
		Detail:       log.Detail,
		Items:        make([]SyncLogItemModel, len(log.Items)),
	}
	m.FromDomainBaseEntity(log.BaseEntity)
	for i, item := range log.Items {
		itemModel := SyncLogItemModel{
			SyncLogID:   item.SyncLogID,
			Sku:         item.Sku,
			Outcome:     string(item.Outcome),
			Category:    item.Category,
			OldQuantity: item.OldQuantity,
			NewQuantity: item.NewQuantity,
			Message:     item.Message,
		}
		itemModel.FromDomainBaseEntity(item.BaseEntity)
		m.Items[i] = itemModel
	}
	return m
}
