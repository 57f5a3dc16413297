package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roofquote_backend/internal/estimate"
	apphttp "roofquote_backend/internal/http"
	"roofquote_backend/internal/http/router"
	"roofquote_backend/internal/results"
	"roofquote_backend/internal/scheduler"
	"roofquote_backend/platform/config"
	"roofquote_backend/platform/db"
	"roofquote_backend/platform/events"
	"roofquote_backend/platform/logger"
	"roofquote_backend/platform/validator"

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

	// The database is optional: without DATABASE_URL the service still takes
	// webhooks, it just keeps no estimate history.
	var pool *pgxpool.Pool
	if cfg.IsDatabaseEnabled() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg, "migrations")
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")

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
	} else {
		log.Warn("DATABASE_URL not configured; estimate history disabled")
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	store := initResultStore(cfg, log)

	retries, closeScheduler := initWritebackScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	estimateModule, err := estimate.NewModule(cfg, pool, store, retries, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize estimate module", "error", err)
		panic("failed to initialize estimate module: " + err.Error())
	}
	estimateModule.RegisterEventHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			estimateModule,
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initResultStore prefers redis so results survive restarts; the bounded
// in-memory store is the fallback for setups without redis.
func initResultStore(cfg *config.Config, log *logger.Logger) results.Store {
	if cfg.GetRedisURL() != "" {
		store, err := results.NewRedisStore(cfg.GetRedisURL(), cfg.GetResultTTL())
		if err == nil {
			log.Info("redis result store initialized")
			return store
		}
		log.Error("failed to initialize redis result store, falling back to memory", "error", err)
	}
	return results.NewMemoryStore(cfg.GetResultTTL())
}

func initWritebackScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.WritebackScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; deferred write-back retries disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize write-back scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
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
	return fmt.Errorf("%s: %w", name, lastErr)
}
