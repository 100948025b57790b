package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/application/stocksync"
)

// PushProcessor drains due queued movements
type PushProcessor interface {
	ProcessPendingMovements(ctx context.Context, limit int) (*stocksync.BatchResult, error)
}

// PushPollerConfig holds configuration for the push poller
type PushPollerConfig struct {
	// PollInterval is how often to look for due movements
	PollInterval time.Duration
	// BatchLimit is the maximum movements drained per poll
	BatchLimit int
	// BatchTimeout is the maximum time one drain pass may take
	BatchTimeout time.Duration
}

// DefaultPushPollerConfig returns default configuration
func DefaultPushPollerConfig() PushPollerConfig {
	return PushPollerConfig{
		PollInterval: 5 * time.Second,
		BatchLimit:   50,
		BatchTimeout: 5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *PushPollerConfig) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.BatchLimit <= 0 {
		return ErrInvalidConfig
	}
	if c.BatchTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// PushPoller polls the movement queue and drains due movements in batches.
// A poll that fires while the previous batch is still running is skipped,
// so slow batches never stack.
type PushPoller struct {
	config    PushPollerConfig
	processor PushProcessor
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  atomic.Bool
}

// NewPushPoller creates a push poller
func NewPushPoller(config PushPollerConfig, processor PushProcessor, logger *zap.Logger) (*PushPoller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PushPoller{
		config:    config,
		processor: processor,
		logger:    logger,
	}, nil
}

// Start starts the polling loop
func (p *PushPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Push poller started",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("batch_limit", p.config.BatchLimit),
	)
	return nil
}

// Stop gracefully stops the poller, waiting for the in-flight batch
func (p *PushPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Push poller stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Push poller stop timed out")
		return ctx.Err()
	}
}

// runLoop polls on the configured interval
func (p *PushPoller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Drain immediately on start
	p.drainOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drainOnce(ctx)
		}
	}
}

// drainOnce runs one batch unless the previous batch is still running
func (p *PushPoller) drainOnce(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("Push poll skipped, previous batch still running")
		return
	}
	defer p.inFlight.Store(false)

	batchCtx, cancel := context.WithTimeout(ctx, p.config.BatchTimeout)
	defer cancel()

	result, err := p.processor.ProcessPendingMovements(batchCtx, p.config.BatchLimit)
	if err != nil {
		p.logger.Error("Push batch failed", zap.Error(err))
		return
	}
	if result.Processed == 0 {
		return
	}

	p.logger.Info("Push batch drained",
		zap.Int("processed", result.Processed),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Int("requeued", result.Requeued),
		zap.Int("skipped", result.Skipped),
	)
}
