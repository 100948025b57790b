package stocksync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/shared"
	storedomain "github.com/stocksync/backend/internal/domain/store"
	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

// ErrUnsupportedEventType indicates an order event that carries no stock
// semantics. Webhook handlers acknowledge these with a no-op so the sender
// does not retry.
var ErrUnsupportedEventType = errors.New("stocksync: unsupported order event type")

// ClassifyEventType maps an order lifecycle event type onto a movement
// direction: order creation debits the ledger, cancellation and refund
// credit it back.
func ClassifyEventType(eventType string) (syncdomain.MovementDirection, error) {
	switch eventType {
	case "orders/create", "order.created":
		return syncdomain.MovementDebit, nil
	case "orders/cancelled", "order.cancelled", "orders/refunded", "order.refunded":
		return syncdomain.MovementCredit, nil
	default:
		return "", ErrUnsupportedEventType
	}
}

// EnqueueService turns normalized storefront order events into pending
// movements, deduplicated on the (store, order, SKU, direction) natural key.
type EnqueueService struct {
	movements syncdomain.MovementRepository
	syncLogs  syncdomain.SyncLogRepository
	logger    *zap.Logger
}

// NewEnqueueService creates an EnqueueService
func NewEnqueueService(movements syncdomain.MovementRepository, syncLogs syncdomain.SyncLogRepository, logger *zap.Logger) *EnqueueService {
	return &EnqueueService{
		movements: movements,
		syncLogs:  syncLogs,
		logger:    logger,
	}
}

// EnqueueOrderEvent enqueues one pending movement per line item with a
// non-empty SKU. A line whose natural key already has a movement is skipped:
// two deliveries of the same webhook must not produce a second effective
// movement. Unsupported event types return ErrUnsupportedEventType without
// touching the queue.
func (s *EnqueueService) EnqueueOrderEvent(ctx context.Context, st *storedomain.Store, integration *storedomain.Integration, event OrderEvent) (*EnqueueResult, error) {
	direction, err := ClassifyEventType(event.EventType)
	if err != nil {
		return nil, err
	}
	if event.OrderID == "" {
		return nil, syncdomain.ErrMovementInvalidOrder
	}

	result := &EnqueueResult{Direction: direction}
	runLog := syncdomain.NewSyncLog(st.TenantID, st.ID, syncdomain.SyncKindPush, syncdomain.SyncModeWebhook, event.EventType, false)

	for _, line := range event.LineItems {
		if line.Sku == "" {
			result.SkippedNoSku++
			continue
		}

		// Indexed point lookup on the natural key; a full-table scan is a
		// non-scaling fallback and is deliberately not implemented.
		existing, err := s.movements.FindByDedupKey(ctx, st.ID, event.OrderID, line.Sku, direction)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			result.Duplicates++
			runLog.RecordSkipped(line.Sku, "duplicate_event")
			continue
		}

		movement, err := syncdomain.NewMovement(st.TenantID, st.ID, integration.ID, direction, line.Sku, line.Quantity, event.OrderID, event.EventType)
		if err != nil {
			runLog.RecordFailed(line.Sku, syncdomain.CategoryAPIError, err.Error())
			continue
		}
		if err := s.movements.Save(ctx, movement); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				// Lost the race against a concurrent delivery of the same
				// event; the unique index kept the key unique.
				result.Duplicates++
				runLog.RecordSkipped(line.Sku, "duplicate_event")
				continue
			}
			return nil, err
		}
		result.Enqueued++
		result.MovementIDs = append(result.MovementIDs, movement.ID)
		runLog.RecordUpdated(line.Sku, 0, line.Quantity)
	}

	runLog.Finish()
	if err := s.syncLogs.Save(ctx, runLog); err != nil {
		s.logger.Warn("failed to persist enqueue audit log",
			zap.String("store_id", st.ID.String()),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}

	s.logger.Info("order event enqueued",
		zap.String("store_id", st.ID.String()),
		zap.String("order_id", event.OrderID),
		zap.String("event_type", event.EventType),
		zap.String("direction", direction.String()),
		zap.Int("enqueued", result.Enqueued),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}
