package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/cologne-noir/decant/internal/jobs"
	"github.com/cologne-noir/decant/internal/stats"
)

// TaskStatsWarmup recomputes the admin dashboard snapshot into the cache.
const TaskStatsWarmup = "stats:warmup"

// StatsRefresher recomputes and stores admin stats.
type StatsRefresher interface {
	Refresh(ctx context.Context) (stats.AdminStats, error)
}

// StatsWarmupJob keeps the stats cache populated between dashboard loads.
type StatsWarmupJob struct {
	Stats   StatsRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStatsWarmupJob wires dependencies for the warmup handler.
func NewStatsWarmupJob(refresher StatsRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatsWarmupJob {
	return &StatsWarmupJob{Stats: refresher, Logger: logger, Metrics: metrics}
}

// Handle processes stats warmup tasks.
func (j *StatsWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Stats == nil {
		return errors.New("stats warmup: handler not configured")
	}
	tracker := j.metrics().Track(TaskStatsWarmup)
	logger := j.logger()
	snapshot, err := j.Stats.Refresh(ctx)
	if err != nil {
		logger.Error("refresh stats", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Debug("stats warmed",
		slog.Int("total_orders", snapshot.TotalOrders),
		slog.Int("pending_orders", snapshot.PendingOrders),
		slog.Int("low_stock", snapshot.LowStockCount))
	return tracker.End(nil)
}

func (j *StatsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskStatsWarmup))
}

func (j *StatsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
