package stocksync

import (
	"time"

	"github.com/google/uuid"

	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

// OrderLineItem is one normalized line of a storefront order event
type OrderLineItem struct {
	Sku      string
	Quantity int64
}

// OrderEvent is a storefront order lifecycle event normalized out of a
// platform webhook payload.
type OrderEvent struct {
	OrderID   string
	EventType string
	LineItems []OrderLineItem
}

// EnqueueResult summarizes one webhook-originated enqueue
type EnqueueResult struct {
	Direction    syncdomain.MovementDirection
	Enqueued     int
	Duplicates   int
	SkippedNoSku int
	MovementIDs  []uuid.UUID
}

// MovementResponse is the outward projection of a queued movement
type MovementResponse struct {
	ID            uuid.UUID                    `json:"id"`
	StoreID       uuid.UUID                    `json:"store_id"`
	Direction     syncdomain.MovementDirection `json:"direction"`
	Sku           string                       `json:"sku"`
	Quantity      int64                        `json:"quantity"`
	OrderID       string                       `json:"order_id"`
	EventType     string                       `json:"event_type"`
	Status        syncdomain.MovementStatus    `json:"status"`
	Attempts      int                          `json:"attempts"`
	MaxAttempts   int                          `json:"max_attempts"`
	NextAttemptAt *time.Time                   `json:"next_attempt_at,omitempty"`
	ProcessedAt   *time.Time                   `json:"processed_at,omitempty"`
	ErrorMessage  string                       `json:"error_message,omitempty"`
	CreatedAt     time.Time                    `json:"created_at"`
}

// ToMovementResponse maps a movement to its response projection
func ToMovementResponse(m *syncdomain.Movement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		StoreID:       m.StoreID,
		Direction:     m.Direction,
		Sku:           m.Sku,
		Quantity:      m.Quantity,
		OrderID:       m.OrderID,
		EventType:     m.EventType,
		Status:        m.Status,
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		NextAttemptAt: m.NextAttemptAt,
		ProcessedAt:   m.ProcessedAt,
		ErrorMessage:  m.ErrorMessage,
		CreatedAt:     m.CreatedAt,
	}
}

// PullMode selects how a reconciliation run is scoped
type PullMode string

const (
	// PullModeFull reconciles every SKU the storefront exposes
	PullModeFull PullMode = "FULL"
	// PullModeSelective reconciles an explicit SKU list
	PullModeSelective PullMode = "SELECTIVE"
)

// PullOptions parameterize one reconciliation run
type PullOptions struct {
	Mode PullMode
	// Skus is the explicit SKU set for selective pulls
	Skus []string
	// DryRun logs intended changes without writing to the storefront
	DryRun bool
	// BypassGuard skips the recent-push suppression. The post-push
	// correction sets it; scheduled and forced pulls do not.
	BypassGuard bool
	// Trigger names the caller for the audit log (scheduled, forced, post_push)
	Trigger string
}

// PullSummary is the outcome of one reconciliation run
type PullSummary struct {
	SyncLogID    uuid.UUID `json:"sync_log_id"`
	StoreID      uuid.UUID `json:"store_id"`
	Mode         PullMode  `json:"mode"`
	DryRun       bool      `json:"dry_run"`
	Total        int       `json:"total"`
	SuccessCount int       `json:"success_count"`
	FailedCount  int       `json:"failed_count"`
	SkippedCount int       `json:"skipped_count"`
}

// BatchResult summarizes one push worker drain pass
type BatchResult struct {
	Processed int
	Completed int
	Failed    int
	Requeued  int
	Skipped   int
}

// SyncLogResponse is the outward projection of an audit log entry
type SyncLogResponse struct {
	ID           uuid.UUID                `json:"id"`
	StoreID      uuid.UUID                `json:"store_id"`
	Kind         syncdomain.SyncKind      `json:"kind"`
	Mode         syncdomain.SyncMode      `json:"mode"`
	Status       syncdomain.SyncRunStatus `json:"status"`
	Trigger      string                   `json:"trigger"`
	DryRun       bool                     `json:"dry_run"`
	StartedAt    time.Time                `json:"started_at"`
	FinishedAt   *time.Time               `json:"finished_at,omitempty"`
	SuccessCount int                      `json:"success_count"`
	FailedCount  int                      `json:"failed_count"`
	SkippedCount int                      `json:"skipped_count"`
	SkipReasons  string                   `json:"skip_reasons,omitempty"`
	Detail       string                   `json:"detail,omitempty"`
}

// ToSyncLogResponse maps a sync log to its response projection
func ToSyncLogResponse(l *syncdomain.SyncLog) SyncLogResponse {
	return SyncLogResponse{
		ID:           l.ID,
		StoreID:      l.StoreID,
		Kind:         l.Kind,
		Mode:         l.Mode,
		Status:       l.Status,
		Trigger:      l.Trigger,
		DryRun:       l.DryRun,
		StartedAt:    l.StartedAt,
		FinishedAt:   l.FinishedAt,
		SuccessCount: l.SuccessCount,
		FailedCount:  l.FailedCount,
		SkippedCount: l.SkippedCount,
		SkipReasons:  l.SkipReasons,
		Detail:       l.Detail,
	}
}
