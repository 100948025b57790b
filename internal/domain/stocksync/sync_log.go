package stocksync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Sync Log Enums
// ---------------------------------------------------------------------------

// SyncKind identifies the synchronization path a log describes
type SyncKind string

const (
	SyncKindPull SyncKind = "PULL"
	SyncKindPush SyncKind = "PUSH"
)

// SyncMode identifies how the run was scoped
type SyncMode string

const (
	// SyncModeFull covers every SKU the storefront exposes
	SyncModeFull SyncMode = "FULL"
	// SyncModeSelective covers an explicit SKU list, typically post-push
	SyncModeSelective SyncMode = "SELECTIVE"
	// SyncModeWebhook covers webhook-originated movements, both the enqueue
	// and the worker batches that drain them
	SyncModeWebhook SyncMode = "WEBHOOK"
)

// SyncRunStatus is the overall outcome of a run
type SyncRunStatus string

const (
	SyncRunStatusRunning SyncRunStatus = "RUNNING"
	SyncRunStatusSuccess SyncRunStatus = "SUCCESS"
	SyncRunStatusPartial SyncRunStatus = "PARTIAL"
	SyncRunStatusFailed  SyncRunStatus = "FAILED"
)

// ItemOutcome is the per-SKU outcome of a pull run
type ItemOutcome string

const (
	ItemOutcomeUpdated ItemOutcome = "UPDATED"
	ItemOutcomeSkipped ItemOutcome = "SKIPPED"
	ItemOutcomeFailed  ItemOutcome = "FAILED"
)

// Skip/failure categories recorded on log items and skip-reason aggregates
const (
	CategoryNoChanges         = "no_changes"
	CategoryNotFoundLedger    = "not_found_ledger"
	CategoryRecentPush        = "recent_push"
	CategoryInsufficientStock = "insufficient_stock"
	CategoryMissingWarehouse  = "missing_warehouse"
	CategoryAPIError          = "api_error"
	CategoryDryRun            = "dry_run"
)

// ---------------------------------------------------------------------------
// SyncLog
// ---------------------------------------------------------------------------

// SyncLog is the append-only audit record of one pull or push run. Items and
// counters are only written while the run is open; after Finish the record
// is immutable except for the summary fields Finish itself sets.
type SyncLog struct {
	shared.BaseEntity
	TenantID     uuid.UUID
	StoreID      uuid.UUID
	Kind         SyncKind
	Mode         SyncMode
	Status       SyncRunStatus
	Trigger      string
	DryRun       bool
	StartedAt    time.Time
	FinishedAt   *time.Time
	SuccessCount int
	FailedCount  int
	SkippedCount int
	SkipReasons  string // JSON map of category -> count
	Detail       string
	Items        []SyncLogItem
}

// SyncLogItem is the per-SKU detail row of a pull run
type SyncLogItem struct {
	shared.BaseEntity
	SyncLogID   uuid.UUID
	Sku         string
	Outcome     ItemOutcome
	Category    string
	OldQuantity int64
	NewQuantity int64
	Message     string
}

// NewSyncLog opens a run log
func NewSyncLog(tenantID, storeID uuid.UUID, kind SyncKind, mode SyncMode, trigger string, dryRun bool) *SyncLog {
	return &SyncLog{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		StoreID:    storeID,
		Kind:       kind,
		Mode:       mode,
		Status:     SyncRunStatusRunning,
		Trigger:    trigger,
		DryRun:     dryRun,
		StartedAt:  time.Now(),
	}
}

// RecordUpdated records a successfully written SKU
func (l *SyncLog) RecordUpdated(sku string, oldQty, newQty int64) {
	l.SuccessCount++
	l.Items = append(l.Items, SyncLogItem{
		BaseEntity:  shared.NewBaseEntity(),
		SyncLogID:   l.ID,
		Sku:         sku,
		Outcome:     ItemOutcomeUpdated,
		OldQuantity: oldQty,
		NewQuantity: newQty,
	})
}

// RecordSkipped records a skipped SKU under the given category
func (l *SyncLog) RecordSkipped(sku, category string) {
	l.SkippedCount++
	l.Items = append(l.Items, SyncLogItem{
		BaseEntity: shared.NewBaseEntity(),
		SyncLogID:  l.ID,
		Sku:        sku,
		Outcome:    ItemOutcomeSkipped,
		Category:   category,
	})
}

// RecordDryRun records the change a dry run would have written
func (l *SyncLog) RecordDryRun(sku string, oldQty, newQty int64) {
	l.SkippedCount++
	l.Items = append(l.Items, SyncLogItem{
		BaseEntity:  shared.NewBaseEntity(),
		SyncLogID:   l.ID,
		Sku:         sku,
		Outcome:     ItemOutcomeSkipped,
		Category:    CategoryDryRun,
		OldQuantity: oldQty,
		NewQuantity: newQty,
	})
}

// RecordFailed records a per-SKU failure with its reason
func (l *SyncLog) RecordFailed(sku, category, message string) {
	l.FailedCount++
	l.Items = append(l.Items, SyncLogItem{
		BaseEntity: shared.NewBaseEntity(),
		SyncLogID:  l.ID,
		Sku:        sku,
		Outcome:    ItemOutcomeFailed,
		Category:   category,
		Message:    message,
	})
}

// Finish closes the run, derives its overall status and aggregates skip reasons
func (l *SyncLog) Finish() {
	now := time.Now()
	l.FinishedAt = &now
	switch {
	case l.FailedCount == 0:
		l.Status = SyncRunStatusSuccess
	case l.SuccessCount > 0 || l.SkippedCount > 0:
		l.Status = SyncRunStatusPartial
	default:
		l.Status = SyncRunStatusFailed
	}
	reasons := make(map[string]int)
	for _, item := range l.Items {
		if item.Outcome == ItemOutcomeSkipped && item.Category != "" {
			reasons[item.Category]++
		}
	}
	if len(reasons) > 0 {
		if raw, err := json.Marshal(reasons); err == nil {
			l.SkipReasons = string(raw)
		}
	}
	l.Touch()
}

// Fail closes the run with an overall failure detail
func (l *SyncLog) Fail(detail string) {
	now := time.Now()
	l.FinishedAt = &now
	l.Status = SyncRunStatusFailed
	l.Detail = detail
	l.Touch()
}
