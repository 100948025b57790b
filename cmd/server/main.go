package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/application/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/infrastructure/connector"
	"github.com/stocksync/backend/internal/infrastructure/guard"
	"github.com/stocksync/backend/internal/infrastructure/ledger"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
	"github.com/stocksync/backend/internal/infrastructure/scheduler"
	"github.com/stocksync/backend/internal/interfaces/http/handler"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
	"github.com/stocksync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stock sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with SQL tracing on the shared logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Initialize repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	cacheRepo := persistence.NewGormStoreProductCacheRepository(db.DB)
	unmappedRepo := persistence.NewGormUnmappedSkuRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	lockRepo := persistence.NewGormLockRepository(db.DB)

	// Recent-push guard: Redis when reachable, in-memory otherwise
	pushGuard, err := guard.NewFactory(cfg.Redis, guard.WithLogger(log)).CreateGuard()
	if err != nil {
		log.Fatal("Failed to create push guard", zap.Error(err))
	}
	defer func() {
		if closer, ok := pushGuard.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.Error("Error closing push guard", zap.Error(err))
			}
		}
	}()

	// Outbound clients
	registry := connector.NewPlatformRegistry()
	ledgerClient := ledger.NewClient(&cfg.Ledger)

	// Application services
	lockManager := stocksync.NewLockManager(lockRepo)
	enqueueService := stocksync.NewEnqueueService(movementRepo, syncLogRepo, log)
	pullService := stocksync.NewPullService(
		storeRepo,
		integrationRepo,
		cacheRepo,
		unmappedRepo,
		syncLogRepo,
		lockManager,
		registry,
		ledgerClient,
		pushGuard,
		log,
		stocksync.PullServiceConfig{
			LockTTL:    cfg.Sync.PullLockTTL,
			BatchSize:  cfg.Sync.PullBatchSize,
			BatchPause: cfg.Sync.PullBatchPause,
		},
	)
	pushWorker := stocksync.NewPushWorker(
		movementRepo,
		cacheRepo,
		unmappedRepo,
		syncLogRepo,
		storeRepo,
		integrationRepo,
		tenantRepo,
		lockManager,
		ledgerClient,
		pushGuard,
		log,
		stocksync.PushWorkerConfig{
			LockTTL:        cfg.Sync.PushLockTTL,
			LockRetryDelay: cfg.Sync.LockRetryDelay,
		},
	)
	pushWorker.SetSelectivePuller(pullService)
	queryService := stocksync.NewQueryService(movementRepo, syncLogRepo, cacheRepo, unmappedRepo)

	// Background loops
	if cfg.Scheduler.Enabled {
		pullScheduler, err := scheduler.NewPullScheduler(
			scheduler.PullSchedulerConfig{
				CheckInterval:      cfg.Scheduler.PullTickInterval,
				MaxConcurrentPulls: scheduler.DefaultPullSchedulerConfig().MaxConcurrentPulls,
				PullTimeout:        scheduler.DefaultPullSchedulerConfig().PullTimeout,
			},
			integrationRepo,
			storeRepo,
			pullService,
			log,
		)
		if err != nil {
			log.Fatal("Failed to create pull scheduler", zap.Error(err))
		}
		if err := pullScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start pull scheduler", zap.Error(err))
		}
		defer func() {
			if err := pullScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping pull scheduler", zap.Error(err))
			}
		}()

		pushPoller, err := scheduler.NewPushPoller(
			scheduler.PushPollerConfig{
				PollInterval: cfg.Scheduler.PushPollInterval,
				BatchLimit:   cfg.Scheduler.PushBatchLimit,
				BatchTimeout: scheduler.DefaultPushPollerConfig().BatchTimeout,
			},
			pushWorker,
			log,
		)
		if err != nil {
			log.Fatal("Failed to create push poller", zap.Error(err))
		}
		if err := pushPoller.Start(context.Background()); err != nil {
			log.Fatal("Failed to start push poller", zap.Error(err))
		}
		defer func() {
			if err := pushPoller.Stop(context.Background()); err != nil {
				log.Error("Error stopping push poller", zap.Error(err))
			}
		}()

		log.Info("Background sync loops started",
			zap.Duration("pull_tick_interval", cfg.Scheduler.PullTickInterval),
			zap.Duration("push_poll_interval", cfg.Scheduler.PushPollInterval),
			zap.Int("push_batch_limit", cfg.Scheduler.PushBatchLimit),
		)
	} else {
		log.Warn("Scheduler disabled, pulls and pushes run on demand only")
	}

	// HTTP handlers
	storeHandler := handler.NewStoreHandler(storeRepo, integrationRepo, registry, log)
	syncHandler := handler.NewSyncHandler(pullService, pushWorker, queryService)
	webhookHandler := handler.NewWebhookHandler(storeRepo, integrationRepo, enqueueService, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.NewRouter(engine).
		RegisterAPI(storeHandler).
		RegisterAPI(syncHandler).
		RegisterWebhooks(webhookHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
