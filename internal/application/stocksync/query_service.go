package stocksync

import (
	"context"

	"github.com/google/uuid"

	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

// QueryService serves the read-only views over the queue, the audit trail and
// the stock projection.
type QueryService struct {
	movements syncdomain.MovementRepository
	syncLogs  syncdomain.SyncLogRepository
	cache     syncdomain.StoreProductCacheRepository
	unmapped  syncdomain.UnmappedSkuRepository
}

// NewQueryService creates a QueryService
func NewQueryService(
	movements syncdomain.MovementRepository,
	syncLogs syncdomain.SyncLogRepository,
	cache syncdomain.StoreProductCacheRepository,
	unmapped syncdomain.UnmappedSkuRepository,
) *QueryService {
	return &QueryService{
		movements: movements,
		syncLogs:  syncLogs,
		cache:     cache,
		unmapped:  unmapped,
	}
}

// ListMovements lists movements matching the filter
func (s *QueryService) ListMovements(ctx context.Context, filter syncdomain.MovementFilter) ([]MovementResponse, int64, error) {
	movements, total, err := s.movements.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		responses = append(responses, ToMovementResponse(&movements[i]))
	}
	return responses, total, nil
}

// GetMovement returns a single movement
func (s *QueryService) GetMovement(ctx context.Context, id uuid.UUID) (*MovementResponse, error) {
	movement, err := s.movements.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToMovementResponse(movement)
	return &resp, nil
}

// ListSyncLogs lists audit entries for a store
func (s *QueryService) ListSyncLogs(ctx context.Context, storeID uuid.UUID, filter syncdomain.SyncLogFilter) ([]SyncLogResponse, int64, error) {
	logs, total, err := s.syncLogs.FindByStore(ctx, storeID, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]SyncLogResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, ToSyncLogResponse(&logs[i]))
	}
	return responses, total, nil
}

// GetSyncLog returns one audit entry with its per-SKU items
func (s *QueryService) GetSyncLog(ctx context.Context, id uuid.UUID) (*syncdomain.SyncLog, error) {
	return s.syncLogs.FindByID(ctx, id)
}

// ListCachedStock returns the cached stock projection for a store
func (s *QueryService) ListCachedStock(ctx context.Context, storeID uuid.UUID) ([]syncdomain.StoreProductCache, error) {
	return s.cache.FindByStore(ctx, storeID)
}

// ListUnmappedSkus returns the unresolved mapping gaps for a store
func (s *QueryService) ListUnmappedSkus(ctx context.Context, storeID uuid.UUID) ([]syncdomain.UnmappedSku, error) {
	return s.unmapped.FindUnresolved(ctx, storeID)
}
