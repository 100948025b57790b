package store

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/connector"
	"github.com/stocksync/backend/internal/domain/shared"
)

var (
	ErrStoreInvalidPlatform = errors.New("store: invalid platform code")
	ErrStoreInvalidBaseURL  = errors.New("store: base URL is required")
	ErrStoreInactive        = errors.New("store: store is inactive")
)

// Store is one storefront (a Shopify shop or a WooCommerce site) owned by a
// tenant. Credentials authenticate the admin API; the webhook secret signs
// inbound order events.
type Store struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	Name          string
	Platform      connector.PlatformCode
	BaseURL       string
	APIKey        string
	APISecret     string
	WebhookSecret string
	Active        bool
	LastSyncAt    *time.Time
}

// NewStore creates an active store
func NewStore(tenantID uuid.UUID, name string, platform connector.PlatformCode, baseURL, apiKey, apiSecret, webhookSecret string) (*Store, error) {
	if !platform.IsValid() {
		return nil, ErrStoreInvalidPlatform
	}
	if baseURL == "" {
		return nil, ErrStoreInvalidBaseURL
	}
	return &Store{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		Name:          name,
		Platform:      platform,
		BaseURL:       baseURL,
		APIKey:        apiKey,
		APISecret:     apiSecret,
		WebhookSecret: webhookSecret,
		Active:        true,
	}, nil
}

// MarkSynced records the completion time of a reconciliation run
func (s *Store) MarkSynced(at time.Time) {
	s.LastSyncAt = &at
	s.Touch()
}

// Integration holds the per-store sync configuration
type Integration struct {
	shared.BaseEntity
	StoreID uuid.UUID
	// WarehouseID scopes ledger reads and movements; empty means global stock
	WarehouseID         string
	SyncIntervalMinutes int
	// ActiveHoursStart/End bound scheduled pulls to a daily window (0-23).
	// Equal values mean the window is always open.
	ActiveHoursStart int
	ActiveHoursEnd   int
	DryRun           bool
	// RecentPushGuardMinutes suppresses pulls of SKUs pushed within this many
	// minutes. Zero disables the guard.
	RecentPushGuardMinutes int
	Enabled                bool
}

// NewIntegration creates an enabled integration with defaults
func NewIntegration(storeID uuid.UUID, warehouseID string, intervalMinutes int) *Integration {
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}
	return &Integration{
		BaseEntity:             shared.NewBaseEntity(),
		StoreID:                storeID,
		WarehouseID:            warehouseID,
		SyncIntervalMinutes:    intervalMinutes,
		RecentPushGuardMinutes: 5,
		Enabled:                true,
	}
}

// SyncInterval returns the configured interval as a duration
func (i *Integration) SyncInterval() time.Duration {
	return time.Duration(i.SyncIntervalMinutes) * time.Minute
}

// InActiveHours reports whether the given time falls inside the configured
// daily window. Windows may wrap midnight (e.g. 22 -> 6).
func (i *Integration) InActiveHours(t time.Time) bool {
	if i.ActiveHoursStart == i.ActiveHoursEnd {
		return true
	}
	h := t.Hour()
	if i.ActiveHoursStart < i.ActiveHoursEnd {
		return h >= i.ActiveHoursStart && h < i.ActiveHoursEnd
	}
	return h >= i.ActiveHoursStart || h < i.ActiveHoursEnd
}

// GuardWindow returns the recent-push guard duration, zero when disabled
func (i *Integration) GuardWindow() time.Duration {
	return time.Duration(i.RecentPushGuardMinutes) * time.Minute
}

// Tenant is the owning account. Inactive or expired tenants keep their queued
// movements pending; nothing is failed on their behalf.
type Tenant struct {
	shared.BaseEntity
	Name      string
	Active    bool
	ExpiresAt *time.Time
}

// IsUsable reports whether sync work may run for the tenant
func (t *Tenant) IsUsable(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return true
}
