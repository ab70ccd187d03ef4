package inventory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/platform/db"
	"github.com/cologne-noir/decant/internal/realtime"
	"github.com/cologne-noir/decant/internal/shared"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	defaultMaxAttempts  = 3
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListAdjustments(ctx context.Context, productID uuid.UUID, limit int) ([]Adjustment, error)
	ListLowStock(ctx context.Context, threshold decimal.Decimal) ([]LowStockProduct, error)
	LedgerTotals(ctx context.Context, productID uuid.UUID) (LedgerTotals, error)
	ListProductIDs(ctx context.Context) ([]uuid.UUID, error)
}

// MetricsPort receives ledger counters.
type MetricsPort interface {
	ObserveAdjustment(reason string, n int)
	ObserveRetry(operation string)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	MaxAttempts       int
	LowStockThreshold decimal.Decimal
}

// Service is the only writer of manual volume changes.
type Service struct {
	repo      RepositoryPort
	effects   *shared.Effects
	metrics   MetricsPort
	logger    *slog.Logger
	attempts  int
	threshold decimal.Decimal
}

// NewService builds Service.
func NewService(repo RepositoryPort, effects *shared.Effects, metrics MetricsPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	threshold := cfg.LowStockThreshold
	if threshold.Sign() <= 0 {
		threshold = LowStockThreshold
	}
	return &Service{repo: repo, effects: effects, metrics: metrics, logger: logger, attempts: attempts, threshold: threshold}
}

// AdjustVolume sets a product's current volume and records the signed change.
func (s *Service) AdjustVolume(ctx context.Context, input AdjustVolumeInput) (AdjustVolumeResult, error) {
	if !input.Reason.Valid() {
		return AdjustVolumeResult{}, ErrInvalidReason
	}
	if !input.Reason.Manual() {
		return AdjustVolumeResult{}, ErrReservedReason
	}
	if input.NewVolume.IsNegative() {
		return AdjustVolumeResult{}, ErrVolumeOutOfRange
	}
	if !ValidScale(input.NewVolume) {
		return AdjustVolumeResult{}, ErrVolumePrecision
	}
	if input.ProductID == uuid.Nil {
		return AdjustVolumeResult{}, ErrProductNotFound
	}

	var adj Adjustment
	err := db.Retry(ctx, s.attempts, s.observeRetry("ledger"), func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			product, err := tx.GetProductForUpdate(ctx, input.ProductID)
			if err != nil {
				return err
			}
			adj, err = Post(ctx, tx, product, Entry{
				NewVolume: input.NewVolume,
				Reason:    input.Reason,
				Notes:     input.Notes,
				ActorID:   input.ActorID,
			})
			return err
		})
	})
	if errors.Is(err, db.ErrRetriesExhausted) {
		s.logger.Warn("volume adjustment conflict", slog.String("product_id", input.ProductID.String()), slog.Any("error", err))
		return AdjustVolumeResult{}, ErrConflict
	}
	if err != nil {
		return AdjustVolumeResult{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveAdjustment(string(adj.Reason), 1)
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   "inventory:adjust_volume",
		Entity:   "product",
		EntityID: input.ProductID.String(),
		Meta: map[string]any{
			"previous_volume": adj.PreviousVolume.String(),
			"new_volume":      adj.NewVolume.String(),
			"adjustment":      adj.Amount.String(),
			"reason":          string(adj.Reason),
		},
	},
		realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: input.ProductID.String()},
		realtime.Change{Table: realtime.TableVolumeAdjustments, Action: realtime.ActionInsert, ID: adj.ID.String()},
	)

	return AdjustVolumeResult{
		AdjustmentID:   adj.ID,
		PreviousVolume: adj.PreviousVolume,
		NewVolume:      adj.NewVolume,
		Adjustment:     adj.Amount,
	}, nil
}

// History lists a product's adjustments newest first.
func (s *Service) History(ctx context.Context, productID uuid.UUID, limit int) ([]Adjustment, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListAdjustments(ctx, productID, limit)
}

// LowStock lists active products below threshold. A non-positive threshold uses the configured one.
func (s *Service) LowStock(ctx context.Context, threshold decimal.Decimal) ([]LowStockProduct, error) {
	if threshold.Sign() <= 0 {
		threshold = s.threshold
	}
	return s.repo.ListLowStock(ctx, threshold)
}

// Threshold returns the configured low stock threshold.
func (s *Service) Threshold() decimal.Decimal {
	return s.threshold
}

// Reconcile rebuilds a product's volume from its capacity and adjustments and
// compares it with the stored value.
func (s *Service) Reconcile(ctx context.Context, productID uuid.UUID) (ReconcileReport, error) {
	totals, err := s.repo.LedgerTotals(ctx, productID)
	if err != nil {
		return ReconcileReport{}, err
	}
	expected := totals.TotalVolume.Add(totals.Adjustments)
	drift := totals.CurrentVolume.Sub(expected)
	return ReconcileReport{
		ProductID: productID,
		Expected:  expected,
		Actual:    totals.CurrentVolume,
		Drift:     drift,
		Entries:   totals.Entries,
		Balanced:  drift.IsZero(),
	}, nil
}

// ReconcileAll reconciles every product and returns the reports that drifted.
func (s *Service) ReconcileAll(ctx context.Context) ([]ReconcileReport, error) {
	ids, err := s.repo.ListProductIDs(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []ReconcileReport
	for _, id := range ids {
		report, err := s.Reconcile(ctx, id)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		if !report.Balanced {
			s.logger.Warn("ledger drift", slog.String("product_id", id.String()), slog.String("drift", report.Drift.String()))
			drifted = append(drifted, report)
		}
	}
	return drifted, nil
}

func (s *Service) observeRetry(operation string) db.RetryObserver {
	return func(attempt int, err error) {
		s.logger.Debug("retrying transaction", slog.String("operation", operation), slog.Int("attempt", attempt), slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.ObserveRetry(operation)
		}
	}
}
