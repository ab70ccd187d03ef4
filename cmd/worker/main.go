package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cologne-noir/decant/internal/app"
	jobmetrics "github.com/cologne-noir/decant/internal/jobs"
	"github.com/cologne-noir/decant/internal/observability"
	"github.com/cologne-noir/decant/internal/platform/cache"
	"github.com/cologne-noir/decant/internal/platform/db"
	"github.com/cologne-noir/decant/jobs"
)

// warmupDebounce collapses bursts of stats bumps into one warmup task.
const warmupDebounce = 10 * time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	services, err := app.BuildServices(cfg, logger, pool, redisClient, metrics)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("services close", slog.Any("error", err))
		}
	}()

	mailJob := jobs.NewMailJob(logger, jobMetrics)
	lowStockJob := jobs.NewLowStockScanJob(services.Inventory, metrics, logger, jobMetrics)
	reconcileJob := jobs.NewReconcileJob(services.Inventory, logger, jobMetrics)
	warmupJob := jobs.NewStatsWarmupJob(services.Stats, logger, jobMetrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(services.Idempotency, logger, jobMetrics)

	schedule, err := jobs.DefaultSchedule()
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   app.RedisClientOpt(cfg),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskInventoryReconcile, Handler: reconcileJob.Handle},
			{Type: jobs.TaskStatsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	err = services.StatsCache.ListenForInvalidation(ctx, func(version int64) {
		task, err := jobs.NewTask(jobs.TaskStatsWarmup, "bump")
		if err != nil {
			return
		}
		if _, err := services.Jobs.EnqueueTask(ctx, task, asynq.Unique(warmupDebounce)); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Warn("enqueue stats warmup", slog.Int64("version", version), slog.Any("error", err))
		}
	})
	if err != nil {
		logger.Warn("listen for stats bumps", slog.Any("error", err))
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency), slog.Int("cron_entries", len(schedule)))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
