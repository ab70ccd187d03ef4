package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
	jobmetrics "github.com/cologne-noir/decant/internal/jobs"
)

// TaskLowStockScan lists active products running low on liquid.
const TaskLowStockScan = "inventory:low_stock_scan"

// LowStockScanPayload optionally overrides the configured threshold.
type LowStockScanPayload struct {
	ThresholdML decimal.Decimal `json:"threshold_ml"`
	Trigger     string          `json:"trigger,omitempty"`
}

// LowStockSource is the inventory query used by the scan.
type LowStockSource interface {
	LowStock(ctx context.Context, threshold decimal.Decimal) ([]inventory.LowStockProduct, error)
}

// LowStockGauge receives the number of low stock products found.
type LowStockGauge interface {
	SetLowStock(n int)
}

// LowStockScanJob logs products below the low stock threshold.
type LowStockScanJob struct {
	Inventory LowStockSource
	Gauge     LowStockGauge
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(source LowStockSource, gauge LowStockGauge, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Inventory: source, Gauge: gauge, Logger: logger, Metrics: metrics}
}

// Handle processes low stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskLowStockScan)
	logger := j.logger()

	products, err := j.Inventory.LowStock(ctx, payload.ThresholdML)
	if err != nil {
		logger.Error("list low stock products", slog.Any("error", err))
		return tracker.End(err)
	}
	if j.Gauge != nil {
		j.Gauge.SetLowStock(len(products))
	}
	out := 0
	for _, p := range products {
		if p.Status == inventory.StockOut {
			out++
		}
		logger.Warn("low stock",
			slog.String("product_id", p.ID.String()),
			slog.String("brand", p.Brand),
			slog.String("name", p.Name),
			slog.String("current_ml", p.CurrentVolume.String()),
			slog.String("status", string(p.Status)))
	}
	logger.Info("low stock scan completed", slog.Int("low", len(products)), slog.Int("out_of_stock", out))
	return tracker.End(nil)
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
