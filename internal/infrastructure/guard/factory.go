package guard

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/application/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/config"
)

// Factory creates the recent-push guard based on configuration. Redis is
// preferred so the guard window survives restarts and is shared between
// instances; the in-memory guard is the single-instance fallback.
type Factory struct {
	redisConfig   config.RedisConfig
	logger        *zap.Logger
	allowInMemory bool
}

// FactoryOption configures the guard factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls falling back to the in-memory guard when
// Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemory = allow
	}
}

// NewFactory creates a guard factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:   cfg,
		logger:        zap.NewNop(),
		allowInMemory: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateGuard returns a Redis guard when Redis is reachable, otherwise the
// in-memory guard when fallback is allowed.
func (f *Factory) CreateGuard() (stocksync.RecentPushGuard, error) {
	g, err := NewRedisPushGuard(&f.redisConfig)
	if err == nil {
		f.logger.Info("using redis recent-push guard")
		return g, nil
	}

	if !f.allowInMemory {
		return nil, fmt.Errorf("redis required for recent-push guard but unavailable: %w", err)
	}

	f.logger.Warn("redis unavailable, falling back to in-memory recent-push guard. "+
		"Guard windows will not be shared between instances.",
		zap.Error(err),
	)
	return stocksync.NewMemoryPushGuard(), nil
}
