package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vlxd-erp/vlxd-erp/internal/analytics"
	"github.com/vlxd-erp/vlxd-erp/internal/app"
	"github.com/vlxd-erp/vlxd-erp/internal/inventory"
	"github.com/vlxd-erp/vlxd-erp/internal/invoices"
	"github.com/vlxd-erp/vlxd-erp/internal/lookup"
	"github.com/vlxd-erp/vlxd-erp/internal/observability"
	"github.com/vlxd-erp/vlxd-erp/internal/shared"
	"github.com/vlxd-erp/vlxd-erp/jobs"
)

// eventFanout enqueues the notification task and invalidates cached
// reports after each committed invoice change.
type eventFanout struct {
	publisher *jobs.EventPublisher
	cache     *analytics.Cache
}

func (f eventFanout) Publish(ctx context.Context, evt invoices.Event) error {
	if err := f.cache.Bump(ctx); err != nil {
		return err
	}
	return f.publisher.Publish(ctx, evt)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	eventPublisher := jobs.NewEventPublisher(asynqClient)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	metrics := observability.NewMetrics()

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)

	invoiceRepo := invoices.NewRepository(dbpool)
	invoiceService := invoices.NewService(invoiceRepo)
	invoiceHandler := invoices.NewHandler(logger, invoiceService, eventFanout{
		publisher: eventPublisher,
		cache:     analyticsCache,
	}, idempotencyStore)

	lookupRepo := lookup.NewRepository(dbpool)
	lookupService := lookup.NewService(lookupRepo, redisClient, cfg.LookupCacheTTL)
	lookupHandler := lookup.NewHandler(logger, lookupService)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsService := analytics.NewService(analyticsRepo, inventoryService, analyticsCache, cfg.LowStockThreshold)
	analyticsHandler := analytics.NewHandler(logger, analyticsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		InvoiceHandler:   invoiceHandler,
		InventoryHandler: inventoryHandler,
		LookupHandler:    lookupHandler,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
