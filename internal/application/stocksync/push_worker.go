package stocksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ledgerdomain "github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared"
	storedomain "github.com/stocksync/backend/internal/domain/store"
	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

const (
	// DefaultPushLockTTL bounds how long a crashed worker can wedge a store
	DefaultPushLockTTL = 5 * time.Minute
	// DefaultLockRetryDelay is how far a movement is pushed out on lock
	// contention. Contention is not a business failure and does not count
	// against the attempt budget.
	DefaultLockRetryDelay = 2 * time.Minute
)

// SelectivePuller triggers the post-push correction pull for a set of SKUs.
// Implemented by PullService; the worker calls it asynchronously after each
// completed movement so authoritative stock is re-derived from the ledger.
type SelectivePuller interface {
	PullSkus(ctx context.Context, storeID uuid.UUID, skus []string, bypassGuard bool, trigger string) (*PullSummary, error)
}

// PushWorkerConfig holds worker tunables
type PushWorkerConfig struct {
	LockTTL        time.Duration
	LockRetryDelay time.Duration
}

// DefaultPushWorkerConfig returns the default worker tunables
func DefaultPushWorkerConfig() PushWorkerConfig {
	return PushWorkerConfig{
		LockTTL:        DefaultPushLockTTL,
		LockRetryDelay: DefaultLockRetryDelay,
	}
}

// PushWorker drains the movement queue: one state-machine execution per
// movement, always under the store's push lock, with idempotent effect at
// the ledger. Every stock-mutating path in the system runs through here;
// that funneling is what makes the advisory locks sufficient.
type PushWorker struct {
	movements    syncdomain.MovementRepository
	cache        syncdomain.StoreProductCacheRepository
	unmapped     syncdomain.UnmappedSkuRepository
	syncLogs     syncdomain.SyncLogRepository
	stores       storedomain.StoreRepository
	integrations storedomain.IntegrationRepository
	tenants      storedomain.TenantRepository
	locks        *LockManager
	ledger       ledgerdomain.Ledger
	guard        RecentPushGuard
	puller       SelectivePuller
	logger       *zap.Logger
	config       PushWorkerConfig
}

// NewPushWorker creates a PushWorker
func NewPushWorker(
	movements syncdomain.MovementRepository,
	cache syncdomain.StoreProductCacheRepository,
	unmapped syncdomain.UnmappedSkuRepository,
	syncLogs syncdomain.SyncLogRepository,
	stores storedomain.StoreRepository,
	integrations storedomain.IntegrationRepository,
	tenants storedomain.TenantRepository,
	locks *LockManager,
	ledger ledgerdomain.Ledger,
	guard RecentPushGuard,
	logger *zap.Logger,
	config PushWorkerConfig,
) *PushWorker {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultPushLockTTL
	}
	if config.LockRetryDelay <= 0 {
		config.LockRetryDelay = DefaultLockRetryDelay
	}
	return &PushWorker{
		movements:    movements,
		cache:        cache,
		unmapped:     unmapped,
		syncLogs:     syncLogs,
		stores:       stores,
		integrations: integrations,
		tenants:      tenants,
		locks:        locks,
		ledger:       ledger,
		guard:        guard,
		logger:       logger,
		config:       config,
	}
}

// SetSelectivePuller wires the post-push correction trigger. Set after
// construction because the worker and the pull service reference each other.
func (w *PushWorker) SetSelectivePuller(p SelectivePuller) {
	w.puller = p
}

// ProcessMovement runs the push state machine for a single movement:
// lock, verify, post, cache, release, correct. See the movement lifecycle on
// syncdomain.Movement for the transition rules.
func (w *PushWorker) ProcessMovement(ctx context.Context, movement *syncdomain.Movement) (err error) {
	if !movement.IsDue(time.Now()) {
		return nil
	}

	lock, err := w.locks.Acquire(ctx, movement.StoreID, syncdomain.LockPush, w.config.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire push lock: %w", err)
	}
	if lock == nil {
		// Contended: another push or pull owns the store right now.
		if err := movement.Reschedule(w.config.LockRetryDelay); err != nil {
			return err
		}
		w.logger.Debug("push lock contended, movement rescheduled",
			zap.String("movement_id", movement.ID.String()),
			zap.String("store_id", movement.StoreID.String()),
		)
		return w.movements.Save(ctx, movement)
	}

	// The lock must be released on every exit path, including panics, so an
	// orphaned lock cannot block future pulls and pushes until TTL expiry.
	defer func() {
		if r := recover(); r != nil {
			requeueErr := movement.Requeue(fmt.Sprintf("unexpected panic: %v", r))
			if requeueErr == nil {
				_ = w.movements.Save(ctx, movement)
			}
			err = fmt.Errorf("panic while processing movement %s: %v", movement.ID, r)
		}
		if releaseErr := w.locks.Release(ctx, movement.StoreID, syncdomain.LockPush); releaseErr != nil {
			w.logger.Error("failed to release push lock",
				zap.String("store_id", movement.StoreID.String()),
				zap.Error(releaseErr),
			)
		}
	}()

	if err := movement.MarkProcessing(); err != nil {
		return err
	}
	if err := w.movements.Save(ctx, movement); err != nil {
		return err
	}

	st, integration, err := w.resolveStore(ctx, movement)
	if err != nil {
		return w.failTerminal(ctx, movement, err.Error())
	}
	if integration.WarehouseID == "" {
		// Without a warehouse the ledger cannot attribute the movement.
		// Retrying cannot fix configuration, so this is terminal.
		return w.failTerminal(ctx, movement, "integration has no warehouse configured")
	}

	productID, err := w.ledger.FindProductIDBySku(ctx, movement.Sku)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrProductNotFound) {
			w.trackUnmapped(ctx, movement.StoreID, movement.Sku, "sku not found in ledger")
			return w.failTerminal(ctx, movement, "sku not found in ledger")
		}
		return w.requeue(ctx, movement, fmt.Sprintf("ledger lookup failed: %v", err))
	}

	if movement.Direction == syncdomain.MovementDebit {
		stock, err := w.ledger.GetStock(ctx, productID, movement.Sku, integration.WarehouseID)
		if err != nil {
			return w.requeue(ctx, movement, fmt.Sprintf("ledger stock read failed: %v", err))
		}
		if stock < movement.Quantity {
			// Terminal business condition: the ledger cannot cover the sale.
			// No ledger call is made.
			w.trackUnmapped(ctx, movement.StoreID, movement.Sku,
				fmt.Sprintf("insufficient stock: ledger has %d, movement needs %d", stock, movement.Quantity))
			return w.failTerminal(ctx, movement, "insufficient stock")
		}
	}

	_, err = w.ledger.PostMovement(ctx, ledgerdomain.MovementRequest{
		Kind:        ledgerKind(movement.Direction),
		WarehouseID: integration.WarehouseID,
		Sku:         movement.Sku,
		Quantity:    movement.Quantity,
		ReferenceID: movement.OrderID,
		Note:        fmt.Sprintf("storefront %s (%s)", movement.EventType, movement.OrderID),
	})
	if err != nil && !errors.Is(err, ledgerdomain.ErrMovementConflict) {
		return w.requeue(ctx, movement, fmt.Sprintf("ledger post failed: %v", err))
	}
	// A 409 conflict means the ledger already holds this movement; the
	// operation is idempotent at the business level, so it completes.

	if err := movement.Complete(); err != nil {
		return err
	}
	if err := w.movements.Save(ctx, movement); err != nil {
		return err
	}

	w.applyCacheDelta(ctx, movement)

	if w.guard != nil && integration.GuardWindow() > 0 {
		if err := w.guard.MarkPushed(ctx, movement.StoreID, movement.Sku, integration.GuardWindow()); err != nil {
			w.logger.Warn("failed to mark recent push", zap.String("sku", movement.Sku), zap.Error(err))
		}
	}

	w.logger.Info("movement completed",
		zap.String("movement_id", movement.ID.String()),
		zap.String("store_id", movement.StoreID.String()),
		zap.String("sku", movement.Sku),
		zap.String("direction", movement.Direction.String()),
		zap.Int64("quantity", movement.Quantity),
	)

	w.triggerPostPushPull(st.ID, movement.Sku)
	return nil
}

// ProcessPendingMovements drains up to limit due movements sequentially and
// writes one aggregated push audit log per affected store. Movements owned by
// inactive or expired tenants are left pending, not failed.
func (w *PushWorker) ProcessPendingMovements(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	due, err := w.movements.FindDue(ctx, time.Now(), limit)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	type storeCounts struct {
		tenantID  uuid.UUID
		completed int
		failed    int
		requeued  int
	}
	perStore := make(map[uuid.UUID]*storeCounts)
	tenantUsable := make(map[uuid.UUID]bool)

	for i := range due {
		movement := &due[i]

		usable, known := tenantUsable[movement.TenantID]
		if !known {
			tenant, err := w.tenants.FindByID(ctx, movement.TenantID)
			usable = err == nil && tenant.IsUsable(time.Now())
			tenantUsable[movement.TenantID] = usable
		}
		if !usable {
			result.Skipped++
			continue
		}

		result.Processed++
		if err := w.ProcessMovement(ctx, movement); err != nil {
			w.logger.Error("movement processing failed",
				zap.String("movement_id", movement.ID.String()),
				zap.Error(err),
			)
		}

		counts, ok := perStore[movement.StoreID]
		if !ok {
			counts = &storeCounts{tenantID: movement.TenantID}
			perStore[movement.StoreID] = counts
		}
		switch movement.Status {
		case syncdomain.MovementStatusCompleted:
			result.Completed++
			counts.completed++
		case syncdomain.MovementStatusFailed:
			result.Failed++
			counts.failed++
		default:
			result.Requeued++
			counts.requeued++
		}
	}

	for storeID, counts := range perStore {
		runLog := syncdomain.NewSyncLog(counts.tenantID, storeID, syncdomain.SyncKindPush, syncdomain.SyncModeWebhook, "worker", false)
		runLog.SuccessCount = counts.completed
		runLog.FailedCount = counts.failed
		runLog.SkippedCount = counts.requeued
		runLog.Finish()
		if err := w.syncLogs.Save(ctx, runLog); err != nil {
			w.logger.Warn("failed to persist push batch audit log",
				zap.String("store_id", storeID.String()),
				zap.Error(err),
			)
		}
	}
	return result, nil
}

// RetryMovement is the operational force-retry trigger: it returns a failed
// or stalled movement to the queue and processes it immediately.
func (w *PushWorker) RetryMovement(ctx context.Context, movementID uuid.UUID) (*MovementResponse, error) {
	movement, err := w.movements.FindByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if err := movement.ForceRetry(); err != nil {
		return nil, err
	}
	if err := w.movements.Save(ctx, movement); err != nil {
		return nil, err
	}
	if err := w.ProcessMovement(ctx, movement); err != nil {
		return nil, err
	}
	resp := ToMovementResponse(movement)
	return &resp, nil
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

func (w *PushWorker) resolveStore(ctx context.Context, movement *syncdomain.Movement) (*storedomain.Store, *storedomain.Integration, error) {
	st, err := w.stores.FindByID(ctx, movement.StoreID)
	if err != nil {
		return nil, nil, fmt.Errorf("store not found: %s", movement.StoreID)
	}
	integration, err := w.integrations.FindByStore(ctx, movement.StoreID)
	if err != nil {
		return nil, nil, fmt.Errorf("integration not found for store %s", movement.StoreID)
	}
	return st, integration, nil
}

func (w *PushWorker) failTerminal(ctx context.Context, movement *syncdomain.Movement, cause string) error {
	if err := movement.FailPermanently(cause); err != nil {
		return err
	}
	w.logger.Warn("movement failed terminally",
		zap.String("movement_id", movement.ID.String()),
		zap.String("sku", movement.Sku),
		zap.String("cause", cause),
	)
	return w.movements.Save(ctx, movement)
}

func (w *PushWorker) requeue(ctx context.Context, movement *syncdomain.Movement, cause string) error {
	if err := movement.Requeue(cause); err != nil {
		return err
	}
	w.logger.Warn("movement requeued",
		zap.String("movement_id", movement.ID.String()),
		zap.String("status", movement.Status.String()),
		zap.Int("attempts", movement.Attempts),
		zap.String("cause", cause),
	)
	return w.movements.Save(ctx, movement)
}

// applyCacheDelta applies the signed quantity delta to the UI projection.
// The cache is best effort: failures are logged, never propagated.
func (w *PushWorker) applyCacheDelta(ctx context.Context, movement *syncdomain.Movement) {
	entry, err := w.cache.FindByStoreAndSku(ctx, movement.StoreID, movement.Sku)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			w.logger.Warn("cache lookup failed", zap.String("sku", movement.Sku), zap.Error(err))
			return
		}
		qty := movement.Direction.SignedDelta(movement.Quantity)
		if qty < 0 {
			qty = 0
		}
		entry = syncdomain.NewStoreProductCache(movement.StoreID, movement.Sku, qty, syncdomain.CacheModifiedByPush)
	} else {
		entry.ApplyDelta(movement.Direction.SignedDelta(movement.Quantity), syncdomain.CacheModifiedByPush)
	}
	if err := w.cache.Save(ctx, entry); err != nil {
		w.logger.Warn("cache update failed", zap.String("sku", movement.Sku), zap.Error(err))
	}
}

func (w *PushWorker) trackUnmapped(ctx context.Context, storeID uuid.UUID, sku, reason string) {
	entry, err := w.unmapped.FindByStoreAndSku(ctx, storeID, sku)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			w.logger.Warn("unmapped sku lookup failed", zap.String("sku", sku), zap.Error(err))
			return
		}
		entry = syncdomain.NewUnmappedSku(storeID, sku, reason)
	} else {
		entry.RecordOccurrence(reason)
	}
	if err := w.unmapped.Save(ctx, entry); err != nil {
		w.logger.Warn("unmapped sku tracking failed", zap.String("sku", sku), zap.Error(err))
	}
}

// triggerPostPushPull re-derives authoritative stock for the pushed SKU. It
// runs detached from the movement's request context so a completed push is
// corrected even if the caller has gone away, and it bypasses the
// recent-push guard because this pull is the deliberate correction.
func (w *PushWorker) triggerPostPushPull(storeID uuid.UUID, sku string) {
	if w.puller == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		for {
			_, err := w.puller.PullSkus(ctx, storeID, []string{sku}, true, "post_push")
			if err == nil {
				return
			}
			if errors.Is(err, ErrPullLocked) {
				// The push lock that completed this movement is released just
				// after the trigger fires; wait out that race instead of
				// dropping the correction.
				select {
				case <-time.After(time.Second):
					continue
				case <-ctx.Done():
					err = ctx.Err()
				}
			}
			w.logger.Warn("post-push selective pull failed",
				zap.String("store_id", storeID.String()),
				zap.String("sku", sku),
				zap.Error(err),
			)
			return
		}
	}()
}

func ledgerKind(d syncdomain.MovementDirection) ledgerdomain.MovementKind {
	if d == syncdomain.MovementDebit {
		return ledgerdomain.MovementKindDebit
	}
	return ledgerdomain.MovementKindCredit
}
