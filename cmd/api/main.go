package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_intent_backend/internal/campaigns"
	"crm_intent_backend/internal/events"
	apphttp "crm_intent_backend/internal/http"
	"crm_intent_backend/internal/http/router"
	"crm_intent_backend/internal/intent"
	"crm_intent_backend/internal/leadscoring"
	"crm_intent_backend/internal/notification"
	"crm_intent_backend/internal/storage"
	"crm_intent_backend/internal/webhook"
	"crm_intent_backend/platform/cache"
	"crm_intent_backend/platform/config"
	"crm_intent_backend/platform/db"
	"crm_intent_backend/platform/logger"
	"crm_intent_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Action score lookups go through Redis when available, an in-process
	// cache otherwise.
	var scoreCache cache.Cache
	if cfg.GetRedisURL() != "" {
		redisCache, err := cache.NewRedisCache(cfg.GetRedisURL())
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = redisCache.Close() }()
		scoreCache = redisCache
		log.Info("redis cache initialized")
	} else {
		scoreCache = cache.NewMemoryCache()
		log.Warn("REDIS_URL not configured; using in-memory action score cache")
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Raw webhook payloads are archived to MinIO when configured.
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure webhook archive bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, cfg.GetMinioBucketWebhookArchive())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketWebhookArchive())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		archiver := storage.NewArchiver(storageSvc, cfg.GetMinioBucketWebhookArchive(), log)
		archiver.Register(eventBus)
		log.Info("webhook payload archiver initialized", "bucket", cfg.GetMinioBucketWebhookArchive())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; webhook payload archiving disabled")
	}

	// High-intent email alerts subscribe to recorded intent events.
	if cfg.GetAlertsEnabled() {
		alerter := notification.NewAlerter(notification.NewSMTPSender(cfg), cfg, log)
		alerter.Register(eventBus)
		log.Info("high-intent alerts initialized", "threshold", cfg.GetAlertScoreThreshold())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	intentModule, err := intent.NewModule(pool, scoreCache, cfg, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize intent module", "error", err)
		panic("failed to initialize intent module: " + err.Error())
	}

	leadScoringModule := leadscoring.NewModule(pool, eventBus, val, log)

	webhookModule := webhook.NewModule(
		pool,
		campaigns.New(pool),
		intentModule.Service(),
		intentModule.Enrichment(),
		leadScoringModule.Service(),
		leadScoringModule.Repository(),
		eventBus,
		val,
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			intentModule,
			leadScoringModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
