package stocksync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	connectordomain "github.com/stocksync/backend/internal/domain/connector"
	ledgerdomain "github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared"
	storedomain "github.com/stocksync/backend/internal/domain/store"
	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

// ErrPullLocked indicates another pull or push currently owns the store
var ErrPullLocked = errors.New("stocksync: store is locked by another sync run")

const (
	// DefaultPullLockTTL bounds a crashed full pull; large catalogs take a while
	DefaultPullLockTTL = 10 * time.Minute
	// DefaultPullBatchSize is how many SKUs reconcile concurrently per batch
	DefaultPullBatchSize = 20
	// DefaultBatchPause is the inter-batch pause that keeps the storefront
	// rate budget from draining in one burst.
	DefaultBatchPause = 500 * time.Millisecond
)

// PullServiceConfig holds pull tunables
type PullServiceConfig struct {
	LockTTL    time.Duration
	BatchSize  int
	BatchPause time.Duration
}

// DefaultPullServiceConfig returns the default pull tunables
func DefaultPullServiceConfig() PullServiceConfig {
	return PullServiceConfig{
		LockTTL:    DefaultPullLockTTL,
		BatchSize:  DefaultPullBatchSize,
		BatchPause: DefaultBatchPause,
	}
}

// PullService reconciles storefront stock against the ledger: for every SKU
// in scope it reads the authoritative ledger quantity and writes it to the
// storefront when they differ. The ledger is never written during a pull.
type PullService struct {
	stores       storedomain.StoreRepository
	integrations storedomain.IntegrationRepository
	cache        syncdomain.StoreProductCacheRepository
	unmapped     syncdomain.UnmappedSkuRepository
	syncLogs     syncdomain.SyncLogRepository
	locks        *LockManager
	connectors   connectordomain.Registry
	ledger       ledgerdomain.Ledger
	guard        RecentPushGuard
	logger       *zap.Logger
	config       PullServiceConfig
}

// NewPullService creates a PullService
func NewPullService(
	stores storedomain.StoreRepository,
	integrations storedomain.IntegrationRepository,
	cache syncdomain.StoreProductCacheRepository,
	unmapped syncdomain.UnmappedSkuRepository,
	syncLogs syncdomain.SyncLogRepository,
	locks *LockManager,
	connectors connectordomain.Registry,
	ledger ledgerdomain.Ledger,
	guard RecentPushGuard,
	logger *zap.Logger,
	config PullServiceConfig,
) *PullService {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultPullLockTTL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultPullBatchSize
	}
	if config.BatchPause < 0 {
		config.BatchPause = DefaultBatchPause
	}
	return &PullService{
		stores:       stores,
		integrations: integrations,
		cache:        cache,
		unmapped:     unmapped,
		syncLogs:     syncLogs,
		locks:        locks,
		connectors:   connectors,
		ledger:       ledger,
		guard:        guard,
		logger:       logger,
		config:       config,
	}
}

var _ SelectivePuller = (*PullService)(nil)

// PullStore runs one reconciliation for a store under the pull lock.
// Returns ErrPullLocked when the store is already being synced.
func (s *PullService) PullStore(ctx context.Context, storeID uuid.UUID, opts PullOptions) (*PullSummary, error) {
	st, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, storedomain.ErrStoreInactive
	}
	integration, err := s.integrations.FindByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	lock, err := s.locks.Acquire(ctx, storeID, syncdomain.LockPull, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire pull lock: %w", err)
	}
	if lock == nil {
		return nil, ErrPullLocked
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, storeID, syncdomain.LockPull); releaseErr != nil {
			s.logger.Error("failed to release pull lock",
				zap.String("store_id", storeID.String()),
				zap.Error(releaseErr),
			)
		}
	}()

	return s.pullLocked(ctx, st, integration, opts)
}

// PullSkus runs a selective pull for the given SKUs. It is the post-push
// correction entry point; bypassGuard is true on that path because the SKUs
// were just pushed on purpose.
func (s *PullService) PullSkus(ctx context.Context, storeID uuid.UUID, skus []string, bypassGuard bool, trigger string) (*PullSummary, error) {
	return s.PullStore(ctx, storeID, PullOptions{
		Mode:        PullModeSelective,
		Skus:        skus,
		BypassGuard: bypassGuard,
		Trigger:     trigger,
	})
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

func (s *PullService) pullLocked(ctx context.Context, st *storedomain.Store, integration *storedomain.Integration, opts PullOptions) (*PullSummary, error) {
	dryRun := opts.DryRun || integration.DryRun
	runLog := syncdomain.NewSyncLog(st.TenantID, st.ID, syncdomain.SyncKindPull, pullLogMode(opts.Mode), opts.Trigger, dryRun)

	conn, err := s.connectors.ForStore(st.Platform, st.BaseURL, st.APIKey, st.APISecret)
	if err != nil {
		runLog.Fail(fmt.Sprintf("connector resolution failed: %v", err))
		s.saveLog(ctx, runLog)
		return nil, err
	}

	products, err := s.resolveScope(ctx, conn, opts)
	if err != nil {
		runLog.Fail(fmt.Sprintf("storefront scan failed: %v", err))
		s.saveLog(ctx, runLog)
		return nil, err
	}

	// Per-SKU work runs in bounded concurrent batches; the run log is shared
	// mutable state, guarded by one mutex.
	var logMu sync.Mutex
	for start := 0; start < len(products); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(products) {
			end = len(products)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			go func(p connectordomain.Product) {
				defer wg.Done()
				s.reconcileProduct(ctx, st, integration, conn, p, opts, dryRun, runLog, &logMu)
			}(products[i])
		}
		wg.Wait()

		if ctx.Err() != nil {
			break
		}
		if end < len(products) && s.config.BatchPause > 0 {
			time.Sleep(s.config.BatchPause)
		}
	}

	if err := ctx.Err(); err != nil {
		runLog.Fail(fmt.Sprintf("pull aborted: %v", err))
		s.saveLog(ctx, runLog)
		return nil, err
	}

	runLog.Finish()
	s.saveLog(ctx, runLog)

	st.MarkSynced(time.Now())
	if err := s.stores.Save(ctx, st); err != nil {
		s.logger.Warn("failed to record store sync time",
			zap.String("store_id", st.ID.String()),
			zap.Error(err),
		)
	}

	summary := &PullSummary{
		SyncLogID:    runLog.ID,
		StoreID:      st.ID,
		Mode:         opts.Mode,
		DryRun:       dryRun,
		Total:        len(products),
		SuccessCount: runLog.SuccessCount,
		FailedCount:  runLog.FailedCount,
		SkippedCount: runLog.SkippedCount,
	}
	s.logger.Info("pull completed",
		zap.String("store_id", st.ID.String()),
		zap.String("mode", string(opts.Mode)),
		zap.String("trigger", opts.Trigger),
		zap.Bool("dry_run", dryRun),
		zap.Int("total", summary.Total),
		zap.Int("updated", summary.SuccessCount),
		zap.Int("skipped", summary.SkippedCount),
		zap.Int("failed", summary.FailedCount),
	)
	return summary, nil
}

// resolveScope turns the pull options into the concrete product set: a full
// catalog scan, or point lookups for the selective SKU list.
func (s *PullService) resolveScope(ctx context.Context, conn connectordomain.Connector, opts PullOptions) ([]connectordomain.Product, error) {
	if opts.Mode != PullModeSelective {
		return conn.GetProductsWithSku(ctx)
	}

	products := make([]connectordomain.Product, 0, len(opts.Skus))
	seen := make(map[string]bool, len(opts.Skus))
	for _, sku := range opts.Skus {
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		p, err := conn.GetProductBySku(ctx, sku)
		if err != nil {
			if errors.Is(err, connectordomain.ErrProductNotFound) {
				s.logger.Warn("selective pull sku not on storefront", zap.String("sku", sku))
				continue
			}
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func (s *PullService) reconcileProduct(
	ctx context.Context,
	st *storedomain.Store,
	integration *storedomain.Integration,
	conn connectordomain.Connector,
	product connectordomain.Product,
	opts PullOptions,
	dryRun bool,
	runLog *syncdomain.SyncLog,
	logMu *sync.Mutex,
) {
	record := func(fn func()) {
		logMu.Lock()
		defer logMu.Unlock()
		fn()
	}

	if !product.Managed {
		record(func() { runLog.RecordSkipped(product.Sku, syncdomain.CategoryNoChanges) })
		return
	}

	if !opts.BypassGuard && s.guard != nil && integration.GuardWindow() > 0 {
		recent, err := s.guard.RecentlyPushed(ctx, st.ID, product.Sku)
		if err != nil {
			s.logger.Warn("recent-push guard check failed", zap.String("sku", product.Sku), zap.Error(err))
		} else if recent {
			// A push just changed this SKU; overwriting it now would undo the
			// movement before the ledger view settles.
			record(func() { runLog.RecordSkipped(product.Sku, syncdomain.CategoryRecentPush) })
			return
		}
	}

	productID, err := s.ledger.FindProductIDBySku(ctx, product.Sku)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrProductNotFound) {
			s.trackUnmapped(ctx, st.ID, product.Sku, "sku not found in ledger")
			record(func() { runLog.RecordSkipped(product.Sku, syncdomain.CategoryNotFoundLedger) })
			return
		}
		record(func() { runLog.RecordFailed(product.Sku, syncdomain.CategoryAPIError, err.Error()) })
		return
	}

	ledgerQty, err := s.ledger.GetStock(ctx, productID, product.Sku, integration.WarehouseID)
	if err != nil {
		record(func() { runLog.RecordFailed(product.Sku, syncdomain.CategoryAPIError, err.Error()) })
		return
	}
	if ledgerQty < 0 {
		ledgerQty = 0
	}

	if ledgerQty == product.StockQuantity {
		record(func() { runLog.RecordSkipped(product.Sku, syncdomain.CategoryNoChanges) })
		return
	}

	if dryRun {
		record(func() { runLog.RecordDryRun(product.Sku, product.StockQuantity, ledgerQty) })
		return
	}

	if err := conn.UpdateStock(ctx, product.Ref, ledgerQty); err != nil {
		record(func() { runLog.RecordFailed(product.Sku, syncdomain.CategoryAPIError, err.Error()) })
		return
	}
	record(func() { runLog.RecordUpdated(product.Sku, product.StockQuantity, ledgerQty) })

	s.refreshCache(ctx, st.ID, product.Sku, ledgerQty)
}

// refreshCache overwrites the UI projection with the authoritative quantity.
// Best effort, like the worker's delta path.
func (s *PullService) refreshCache(ctx context.Context, storeID uuid.UUID, sku string, quantity int64) {
	entry, err := s.cache.FindByStoreAndSku(ctx, storeID, sku)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("cache lookup failed", zap.String("sku", sku), zap.Error(err))
			return
		}
		entry = syncdomain.NewStoreProductCache(storeID, sku, quantity, syncdomain.CacheModifiedByPull)
	} else {
		entry.SetQuantity(quantity, syncdomain.CacheModifiedByPull)
	}
	if err := s.cache.Save(ctx, entry); err != nil {
		s.logger.Warn("cache refresh failed", zap.String("sku", sku), zap.Error(err))
	}
}

func (s *PullService) trackUnmapped(ctx context.Context, storeID uuid.UUID, sku, reason string) {
	entry, err := s.unmapped.FindByStoreAndSku(ctx, storeID, sku)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("unmapped sku lookup failed", zap.String("sku", sku), zap.Error(err))
			return
		}
		entry = syncdomain.NewUnmappedSku(storeID, sku, reason)
	} else {
		entry.RecordOccurrence(reason)
	}
	if err := s.unmapped.Save(ctx, entry); err != nil {
		s.logger.Warn("unmapped sku tracking failed", zap.String("sku", sku), zap.Error(err))
	}
}

func (s *PullService) saveLog(ctx context.Context, runLog *syncdomain.SyncLog) {
	if err := s.syncLogs.Save(ctx, runLog); err != nil {
		s.logger.Warn("failed to persist pull audit log",
			zap.String("store_id", runLog.StoreID.String()),
			zap.Error(err),
		)
	}
}

func pullLogMode(mode PullMode) syncdomain.SyncMode {
	if mode == PullModeSelective {
		return syncdomain.SyncModeSelective
	}
	return syncdomain.SyncModeFull
}
