package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	reconciliationapp "github.com/wms/returns/internal/application/reconciliation"
	"github.com/wms/returns/internal/domain/shared"
	"github.com/wms/returns/internal/infrastructure/cache"
	"github.com/wms/returns/internal/infrastructure/config"
	"github.com/wms/returns/internal/infrastructure/erp"
	"github.com/wms/returns/internal/infrastructure/event"
	"github.com/wms/returns/internal/infrastructure/logger"
	"github.com/wms/returns/internal/infrastructure/persistence"
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

	log.Info("Starting returns worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Run schema migrations
	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize repositories
	returnRepo := persistence.NewGormReturnRepository(db.DB)
	ledger := persistence.NewGormLedger(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize the ERP gateway
	gateway, err := erp.NewHTTPGateway(cfg.ERP)
	if err != nil {
		log.Fatal("Failed to create ERP gateway", zap.Error(err))
	}

	// Initialize event infrastructure
	eventBus := event.NewInMemoryEventBus(log)
	eventSerializer := event.NewDomainEventSerializer()

	// Domain events commit through the outbox in the same transaction as
	// their aggregates; the processor below delivers them to the bus
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	returnRepo.SetOutboxEventSaver(outboxPublisher)

	// Idempotency store deduplicates redelivered events
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize the synchronizer with the configured retry policy
	synchronizer := reconciliationapp.NewSynchronizer(ledger, returnRepo, gateway, log).
		WithBackoff(reconciliationapp.Backoff{
			Initial:     cfg.Sync.InitialBackoff,
			Multiplier:  cfg.Sync.BackoffMultiplier,
			MaxDelay:    cfg.Sync.MaxBackoff,
			MaxAttempts: cfg.Sync.MaxAttempts,
		}).
		WithCircuitBreaker(reconciliationapp.NewCircuitBreaker(
			cfg.Sync.BreakerThreshold, cfg.Sync.BreakerTimeout))

	// Subscribe the synchronizer behind the idempotency guard
	syncHandler := event.NewIdempotentHandler(synchronizer, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Sync.IdempotencyTTL,
			Enabled: true,
		}))
	eventBus.Subscribe(syncHandler)

	log.Info("Event handlers registered",
		zap.Strings("synchronizer_events", syncHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Start the outbox processor for guaranteed event delivery
	if cfg.Event.ProcessorEnabled {
		processorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  cfg.Event.CleanupInterval,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := outboxProcessor.Stop(stopCtx); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	log.Info("Returns worker running")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down returns worker")
	log.Info("Returns worker exited gracefully")
}
