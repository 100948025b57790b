package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/connector"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/store"
)

// TenantModel is the persistence model for tenants
type TenantModel struct {
	BaseModel
	Name      string `gorm:"type:varchar(255);not null"`
	Active    bool   `gorm:"not null;default:true"`
	ExpiresAt *time.Time
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *store.Tenant {
	return &store.Tenant{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Name:      m.Name,
		Active:    m.Active,
		ExpiresAt: m.ExpiresAt,
	}
}

// TenantModelFromDomain creates a persistence model from a domain Tenant
func TenantModelFromDomain(t *store.Tenant) *TenantModel {
	m := &TenantModel{
		Name:      t.Name,
		Active:    t.Active,
		ExpiresAt: t.ExpiresAt,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// StoreModel is the persistence model for storefronts
type StoreModel struct {
	BaseModel
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"type:varchar(255);not null"`
	Platform      string    `gorm:"type:varchar(20);not null"`
	BaseURL       string    `gorm:"type:varchar(512);not null"`
	APIKey        string    `gorm:"type:varchar(512);not null"`
	APISecret     string    `gorm:"type:varchar(512)"`
	WebhookSecret string    `gorm:"type:varchar(512)"`
	Active        bool      `gorm:"not null;default:true;index"`
	LastSyncAt    *time.Time
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store
func (m *StoreModel) ToDomain() *store.Store {
	return &store.Store{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:      m.TenantID,
		Name:          m.Name,
		Platform:      connector.PlatformCode(m.Platform),
		BaseURL:       m.BaseURL,
		APIKey:        m.APIKey,
		APISecret:     m.APISecret,
		WebhookSecret: m.WebhookSecret,
		Active:        m.Active,
		LastSyncAt:    m.LastSyncAt,
	}
}

// StoreModelFromDomain creates a persistence model from a domain Store
func StoreModelFromDomain(s *store.Store) *StoreModel {
	m := &StoreModel{
		TenantID:      s.TenantID,
		Name:          s.Name,
		Platform:      s.Platform.String(),
		BaseURL:       s.BaseURL,
		APIKey:        s.APIKey,
		APISecret:     s.APISecret,
		WebhookSecret: s.WebhookSecret,
		Active:        s.Active,
		LastSyncAt:    s.LastSyncAt,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// IntegrationModel is the persistence model for per-store sync configuration
type IntegrationModel struct {
	BaseModel
	StoreID                uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	WarehouseID            string    `gorm:"type:varchar(64)"`
	SyncIntervalMinutes    int       `gorm:"not null;default:15"`
	ActiveHoursStart       int       `gorm:"not null;default:0"`
	ActiveHoursEnd         int       `gorm:"not null;default:0"`
	DryRun                 bool      `gorm:"not null;default:false"`
	RecentPushGuardMinutes int       `gorm:"not null;default:5"`
	Enabled                bool      `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "store_integrations"
}

// ToDomain converts the persistence model to a domain Integration
func (m *IntegrationModel) ToDomain() *store.Integration {
	return &store.Integration{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		StoreID:                m.StoreID,
		WarehouseID:            m.WarehouseID,
		SyncIntervalMinutes:    m.SyncIntervalMinutes,
		ActiveHoursStart:       m.ActiveHoursStart,
		ActiveHoursEnd:         m.ActiveHoursEnd,
		DryRun:                 m.DryRun,
		RecentPushGuardMinutes: m.RecentPushGuardMinutes,
		Enabled:                m.Enabled,
	}
}

// IntegrationModelFromDomain creates a persistence model from a domain Integration
func IntegrationModelFromDomain(i *store.Integration) *IntegrationModel {
	m := &IntegrationModel{
		StoreID:                i.StoreID,
		WarehouseID:            i.WarehouseID,
		SyncIntervalMinutes:    i.SyncIntervalMinutes,
		ActiveHoursStart:       i.ActiveHoursStart,
		ActiveHoursEnd:         i.ActiveHoursEnd,
		DryRun:                 i.DryRun,
		RecentPushGuardMinutes: i.RecentPushGuardMinutes,
		Enabled:                i.Enabled,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}
