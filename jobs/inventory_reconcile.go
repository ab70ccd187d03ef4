package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/cologne-noir/decant/internal/inventory"
	jobmetrics "github.com/cologne-noir/decant/internal/jobs"
)

// TaskInventoryReconcile rebuilds every product's volume from the ledger.
const TaskInventoryReconcile = "inventory:reconcile"

const (
	driftVolumeAhead = "volume_ahead"
	driftLedgerAhead = "ledger_ahead"
)

// Reconciler compares stored volumes with the adjustment history.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]inventory.ReconcileReport, error)
}

// ReconcileJob reports products whose stored volume drifted from the ledger.
type ReconcileJob struct {
	Inventory Reconciler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewReconcileJob wires dependencies for the reconcile handler.
func NewReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{Inventory: reconciler, Logger: logger, Metrics: metrics}
}

// Handle processes reconcile tasks. Drift is reported, never corrected.
func (j *ReconcileJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("inventory reconcile: handler not configured")
	}
	tracker := j.metrics().Track(TaskInventoryReconcile)
	logger := j.logger()

	reports, err := j.Inventory.ReconcileAll(ctx)
	if err != nil {
		logger.Error("reconcile products", slog.Any("error", err))
		return tracker.End(err)
	}
	ahead, behind := 0, 0
	for _, r := range reports {
		if r.Balanced {
			continue
		}
		if r.Drift.IsPositive() {
			ahead++
		} else {
			behind++
		}
		logger.Warn("ledger drift",
			slog.String("product_id", r.ProductID.String()),
			slog.String("expected_ml", r.Expected.String()),
			slog.String("actual_ml", r.Actual.String()),
			slog.Int("entries", r.Entries))
	}
	metrics := j.metrics()
	metrics.SetDrift(driftVolumeAhead, ahead)
	metrics.SetDrift(driftLedgerAhead, behind)
	logger.Info("reconcile completed", slog.Int("drifted", ahead+behind))
	return tracker.End(nil)
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryReconcile))
	}
	return slog.Default().With(slog.String("job", TaskInventoryReconcile))
}

func (j *ReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
