package fulfillment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/orders"
	"github.com/cologne-noir/decant/internal/platform/db"
	"github.com/cologne-noir/decant/internal/realtime"
	"github.com/cologne-noir/decant/internal/shared"
)

const defaultMaxAttempts = 3

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// MetricsPort receives engine counters.
type MetricsPort interface {
	ObserveFulfillment(code string)
	ObserveAdjustment(reason string, n int)
	ObserveRetry(operation string)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	MaxAttempts int
}

// Service converts orders into volume deductions exactly once.
type Service struct {
	repo     RepositoryPort
	effects  *shared.Effects
	metrics  MetricsPort
	logger   *slog.Logger
	attempts int
	now      func() time.Time
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
	return &Service{repo: repo, effects: effects, metrics: metrics, logger: logger, attempts: attempts, now: time.Now}
}

type processed struct {
	adjustments []inventory.Adjustment
	products    []uuid.UUID
}

// ProcessDecantOrder deducts the volume of every item of the order and moves
// it to decanting. Either all items are deducted and the order is marked, or
// nothing changes.
func (s *Service) ProcessDecantOrder(ctx context.Context, orderID, actorID uuid.UUID) (Result, error) {
	var out processed
	err := db.Retry(ctx, s.attempts, s.observeRetry, func() error {
		out = processed{}
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			out, err = s.process(ctx, tx, orderID, actorID)
			return err
		})
	})
	if errors.Is(err, db.ErrRetriesExhausted) {
		s.logger.Warn("fulfillment conflict", slog.String("order_id", orderID.String()), slog.Any("error", err))
		err = ErrConflict
	}
	if err != nil {
		code := ErrorCode(err)
		s.observe(code)
		if code == CodeInternal {
			s.logger.Error("process decant order", slog.String("order_id", orderID.String()), slog.Any("error", err))
		}
		return ResultFromError(err), err
	}

	s.observe("")
	if s.metrics != nil {
		s.metrics.ObserveAdjustment(string(inventory.ReasonOrderFulfillment), len(out.adjustments))
	}
	changes := make([]realtime.Change, 0, len(out.products)+len(out.adjustments)+1)
	changes = append(changes, realtime.Change{Table: realtime.TableOrders, Action: realtime.ActionUpdate, ID: orderID.String()})
	for _, id := range out.products {
		changes = append(changes, realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: id.String()})
	}
	for _, adj := range out.adjustments {
		changes = append(changes, realtime.Change{Table: realtime.TableVolumeAdjustments, Action: realtime.ActionInsert, ID: adj.ID.String()})
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{
		ActorID:  actorID,
		Action:   "fulfillment:process",
		Entity:   "order",
		EntityID: orderID.String(),
		Meta:     map[string]any{"adjustments": len(out.adjustments), "products": len(out.products)},
	}, changes...)

	s.logger.Info("order fulfilled",
		slog.String("order_id", orderID.String()),
		slog.String("actor_id", actorID.String()),
		slog.Int("adjustments", len(out.adjustments)))

	return Result{
		Success:     true,
		Message:     fmt.Sprintf("Order processed: %d item(s) decanted", len(out.adjustments)),
		Adjustments: len(out.adjustments),
	}, nil
}

func (s *Service) process(ctx context.Context, tx TxRepository, orderID, actorID uuid.UUID) (processed, error) {
	order, err := tx.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return processed{}, err
	}
	if order.FulfilledAt != nil {
		return processed{}, ErrAlreadyProcessed
	}
	done, err := tx.HasFulfillmentAdjustments(ctx, orderID)
	if err != nil {
		return processed{}, err
	}
	if done {
		return processed{}, ErrAlreadyProcessed
	}
	if !orders.Fulfillable(order.Status, order.PaymentStatus, order.PaymentMethod) {
		return processed{}, ErrInvalidOrderState
	}

	items, err := tx.ListItems(ctx, orderID)
	if err != nil {
		return processed{}, err
	}
	if len(items) == 0 {
		return processed{}, ErrInvalidOrderState
	}

	required := make(map[uuid.UUID]decimal.Decimal)
	names := make(map[uuid.UUID]string)
	for _, item := range items {
		required[item.ProductID] = required[item.ProductID].Add(item.Required())
		names[item.ProductID] = item.ProductName
	}
	ids := make([]uuid.UUID, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	// Lock in a fixed order so concurrent orders sharing products cannot deadlock.
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	locked := make(map[uuid.UUID]inventory.ProductVolume, len(ids))
	for _, id := range ids {
		product, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return processed{}, err
		}
		if product.CurrentVolume.LessThan(required[id]) {
			return processed{}, &InsufficientVolumeError{
				ProductID:   id,
				ProductName: names[id],
				Required:    required[id],
				Available:   product.CurrentVolume,
			}
		}
		locked[id] = product
	}

	out := processed{products: ids}
	for _, item := range items {
		product := locked[item.ProductID]
		adj, err := inventory.Post(ctx, tx, product, inventory.Entry{
			NewVolume: product.CurrentVolume.Sub(item.Required()),
			Reason:    inventory.ReasonOrderFulfillment,
			Notes:     fmt.Sprintf("Order %s: %dml x %d", shortID(orderID), item.Size, item.Quantity),
			ActorID:   actorID,
			OrderID:   uuid.NullUUID{UUID: orderID, Valid: true},
		})
		if err != nil {
			return processed{}, err
		}
		product.CurrentVolume = adj.NewVolume
		locked[item.ProductID] = product
		out.adjustments = append(out.adjustments, adj)
	}

	if err := tx.MarkFulfilled(ctx, orderID, actorID, s.now().UTC()); err != nil {
		return processed{}, err
	}
	return out, nil
}

func (s *Service) observe(code string) {
	if s.metrics != nil {
		s.metrics.ObserveFulfillment(code)
	}
}

func (s *Service) observeRetry(attempt int, err error) {
	s.logger.Debug("retrying fulfillment", slog.Int("attempt", attempt), slog.Any("error", err))
	if s.metrics != nil {
		s.metrics.ObserveRetry("fulfillment")
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
