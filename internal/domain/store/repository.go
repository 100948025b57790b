package store

import (
	"context"

	"github.com/google/uuid"
)

// StoreRepository persists stores
type StoreRepository interface {
	Save(ctx context.Context, s *Store) error
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)
	FindActive(ctx context.Context) ([]Store, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]Store, error)
}

// IntegrationRepository persists per-store sync configuration
type IntegrationRepository interface {
	Save(ctx context.Context, i *Integration) error
	FindByStore(ctx context.Context, storeID uuid.UUID) (*Integration, error)
	FindEnabled(ctx context.Context) ([]Integration, error)
}

// TenantRepository persists tenants
type TenantRepository interface {
	Save(ctx context.Context, t *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}
