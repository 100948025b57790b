// Package scheduler drives the periodic sync work: the pull scheduler ticks
// store reconciliations on their configured intervals, and the push poller
// drains due queued movements.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/application/stocksync"
	storedomain "github.com/stocksync/backend/internal/domain/store"
)

// PullRunner runs one reconciliation for a store
type PullRunner interface {
	PullStore(ctx context.Context, storeID uuid.UUID, opts stocksync.PullOptions) (*stocksync.PullSummary, error)
}

// PullSchedulerConfig holds configuration for the pull scheduler
type PullSchedulerConfig struct {
	// CheckInterval is how often to check which stores are due for a pull
	CheckInterval time.Duration
	// MaxConcurrentPulls bounds pulls running at the same time
	MaxConcurrentPulls int
	// PullTimeout is the maximum time one reconciliation run may take
	PullTimeout time.Duration
}

// DefaultPullSchedulerConfig returns default configuration
func DefaultPullSchedulerConfig() PullSchedulerConfig {
	return PullSchedulerConfig{
		CheckInterval:      time.Minute,
		MaxConcurrentPulls: 3,
		PullTimeout:        10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *PullSchedulerConfig) Validate() error {
	if c.CheckInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxConcurrentPulls <= 0 {
		return ErrInvalidConfig
	}
	if c.PullTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// PullScheduler ticks on CheckInterval and starts a FULL reconciliation for
// every enabled store whose sync interval has elapsed and whose active-hours
// window is open. The distributed pull lock stays the source of truth for
// mutual exclusion; the in-memory lastStarted map only avoids hammering the
// lock from the same instance.
type PullScheduler struct {
	config       PullSchedulerConfig
	integrations storedomain.IntegrationRepository
	stores       storedomain.StoreRepository
	runner       PullRunner
	logger       *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastStartedMu sync.Mutex
	lastStarted   map[uuid.UUID]time.Time
}

// NewPullScheduler creates a pull scheduler
func NewPullScheduler(
	config PullSchedulerConfig,
	integrations storedomain.IntegrationRepository,
	stores storedomain.StoreRepository,
	runner PullRunner,
	logger *zap.Logger,
) (*PullScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PullScheduler{
		config:       config,
		integrations: integrations,
		stores:       stores,
		runner:       runner,
		logger:       logger,
		lastStarted:  make(map[uuid.UUID]time.Time),
	}, nil
}

// Start starts the scheduler loop
func (s *PullScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Pull scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Int("max_concurrent_pulls", s.config.MaxConcurrentPulls),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight pulls
func (s *PullScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Pull scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Pull scheduler stop timed out")
		return ctx.Err()
	}
}

// runLoop periodically checks for due stores
func (s *PullScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.checkAndPull(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndPull(ctx)
		}
	}
}

// checkAndPull starts a pull for every due store, bounded by the semaphore
func (s *PullScheduler) checkAndPull(ctx context.Context) {
	integrations, err := s.integrations.FindEnabled(ctx)
	if err != nil {
		s.logger.Error("Failed to load enabled integrations", zap.Error(err))
		return
	}
	if len(integrations) == 0 {
		return
	}

	now := time.Now()
	sem := make(chan struct{}, s.config.MaxConcurrentPulls)

	for i := range integrations {
		integration := integrations[i]
		st, err := s.stores.FindByID(ctx, integration.StoreID)
		if err != nil {
			s.logger.Warn("Failed to load store for integration",
				zap.String("store_id", integration.StoreID.String()),
				zap.Error(err),
			)
			continue
		}
		if !s.isDue(st, &integration, now) {
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		s.markStarted(st.ID, now)
		s.wg.Add(1)
		go func(storeID uuid.UUID) {
			defer s.wg.Done()
			defer func() { <-sem }()
			s.runPull(ctx, storeID)
		}(st.ID)
	}
}

// isDue checks activity, the daily window, the configured interval, and the
// local duplicate-start suppression.
func (s *PullScheduler) isDue(st *storedomain.Store, integration *storedomain.Integration, now time.Time) bool {
	if !st.Active {
		return false
	}
	if !integration.InActiveHours(now) {
		return false
	}

	interval := integration.SyncInterval()
	if st.LastSyncAt != nil && now.Sub(*st.LastSyncAt) < interval {
		return false
	}

	s.lastStartedMu.Lock()
	defer s.lastStartedMu.Unlock()
	if started, ok := s.lastStarted[st.ID]; ok && now.Sub(started) < interval {
		return false
	}
	return true
}

func (s *PullScheduler) markStarted(storeID uuid.UUID, t time.Time) {
	s.lastStartedMu.Lock()
	s.lastStarted[storeID] = t
	s.lastStartedMu.Unlock()
}

// runPull executes one scheduled FULL reconciliation
func (s *PullScheduler) runPull(ctx context.Context, storeID uuid.UUID) {
	pullCtx, cancel := context.WithTimeout(ctx, s.config.PullTimeout)
	defer cancel()

	summary, err := s.runner.PullStore(pullCtx, storeID, stocksync.PullOptions{
		Mode:    stocksync.PullModeFull,
		Trigger: "scheduled",
	})
	if err != nil {
		// Another instance holds the pull lock; it will finish the run
		if errors.Is(err, stocksync.ErrPullLocked) {
			s.logger.Debug("Scheduled pull skipped, store already locked",
				zap.String("store_id", storeID.String()),
			)
			return
		}
		s.logger.Error("Scheduled pull failed",
			zap.String("store_id", storeID.String()),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Scheduled pull completed",
		zap.String("store_id", storeID.String()),
		zap.String("sync_log_id", summary.SyncLogID.String()),
		zap.Int("total", summary.Total),
		zap.Int("success_count", summary.SuccessCount),
		zap.Int("failed_count", summary.FailedCount),
		zap.Int("skipped_count", summary.SkippedCount),
	)
}
