package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/realtime"
	"github.com/cologne-noir/decant/internal/shared"
)

const idempotencyModule = "orders"

// DefaultShippingCost is the flat delivery fee in BDT.
var DefaultShippingCost = decimal.NewFromInt(60)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int, error)
	ProductsForCheckout(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductSnapshot, error)
}

// IdempotencyPort de-duplicates checkout submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Bind(ctx context.Context, key, module, resourceID string) error
	Lookup(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key, module string) error
}

// Fulfiller runs the fulfillment engine for an order and returns its result code.
type Fulfiller func(ctx context.Context, orderID, actorID uuid.UUID) (code string, err error)

// PlacedNotifier is told about every stored order, typically to send a confirmation mail.
type PlacedNotifier interface {
	OrderPlaced(ctx context.Context, order Order) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	ShippingCost decimal.Decimal
}

// Service coordinates checkout and the order lifecycle.
type Service struct {
	repo        RepositoryPort
	idempotency IdempotencyPort
	fulfill     Fulfiller
	notifier    PlacedNotifier
	effects     *shared.Effects
	logger      *slog.Logger
	shipping    decimal.Decimal
	now         func() time.Time
}

// NewService builds Service. idem, fulfill and notifier may be nil.
func NewService(repo RepositoryPort, idem IdempotencyPort, fulfill Fulfiller, notifier PlacedNotifier, effects *shared.Effects, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	shipping := cfg.ShippingCost
	if shipping.IsZero() || shipping.IsNegative() {
		shipping = DefaultShippingCost
	}
	return &Service{
		repo:        repo,
		idempotency: idem,
		fulfill:     fulfill,
		notifier:    notifier,
		effects:     effects,
		logger:      logger,
		shipping:    shipping,
		now:         time.Now,
	}
}

// Place stores a new order priced from live product data.
func (s *Service) Place(ctx context.Context, input PlaceOrderInput) (PlaceOrderResult, error) {
	if err := s.validatePlace(&input); err != nil {
		return PlaceOrderResult{}, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return s.replay(ctx, key, input.CustomerID)
			}
			return PlaceOrderResult{}, err
		}
	}

	order, err := s.create(ctx, input)
	if err != nil {
		if key != "" && s.idempotency != nil {
			if delErr := s.idempotency.Delete(ctx, key, idempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return PlaceOrderResult{}, err
	}
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.Bind(ctx, key, idempotencyModule, order.ID.String()); err != nil {
			s.logger.Warn("bind idempotency key", slog.String("order_id", order.ID.String()), slog.Any("error", err))
		}
	}

	var audit *shared.AuditLog
	if input.ByAdmin {
		audit = &shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "orders:create",
			Entity:   "order",
			EntityID: order.ID.String(),
			Meta:     map[string]any{"customer_id": input.CustomerID.String(), "total": order.Total.String()},
		}
	}
	s.effects.AfterCommit(ctx, audit, realtime.Change{Table: realtime.TableOrders, Action: realtime.ActionInsert, ID: order.ID.String()})
	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, order); err != nil {
			s.logger.Warn("order confirmation", slog.String("order_id", order.ID.String()), slog.Any("error", err))
		}
	}
	s.logger.Info("order placed",
		slog.String("order_id", order.ID.String()),
		slog.String("user_id", order.UserID.String()),
		slog.String("total", order.Total.String()))

	result := PlaceOrderResult{Order: order}
	if input.AutoFulfill && s.fulfill != nil {
		code, err := s.fulfill(ctx, order.ID, input.ActorID)
		if err != nil {
			result.FulfillmentCode = code
			result.FulfillmentErr = err.Error()
			return result, nil
		}
		if refreshed, err := s.repo.Get(ctx, order.ID); err == nil {
			result.Order = refreshed
		}
	}
	return result, nil
}

func (s *Service) validatePlace(input *PlaceOrderInput) error {
	if !input.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	input.BkashTransactionID = strings.TrimSpace(input.BkashTransactionID)
	if input.PaymentMethod == PaymentBkash && input.BkashTransactionID == "" {
		return ErrBkashTransactionNeeded
	}
	if len(input.Items) == 0 {
		return ErrEmptyOrder
	}
	if !input.ByAdmin {
		input.CustomerID = input.ActorID
	}
	if input.CustomerID == uuid.Nil {
		return ErrCustomerRequired
	}
	if input.AutoFulfill && (!input.ByAdmin || input.PaymentMethod != PaymentCOD) {
		return ErrAutoFulfillNotAllowed
	}
	for _, line := range input.Items {
		if err := httpx.Validate(line); err != nil {
			return err
		}
	}
	return httpx.Validate(input.ShippingAddress)
}

func (s *Service) replay(ctx context.Context, key string, customerID uuid.UUID) (PlaceOrderResult, error) {
	resource, err := s.idempotency.Lookup(ctx, key, idempotencyModule)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if resource == "" {
		return PlaceOrderResult{}, ErrRequestInFlight
	}
	id, err := uuid.Parse(resource)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("orders: idempotency resource: %w", err)
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if order.UserID != customerID {
		return PlaceOrderResult{}, ErrRequestInFlight
	}
	return PlaceOrderResult{Order: order, Replayed: true}, nil
}

func (s *Service) create(ctx context.Context, input PlaceOrderInput) (Order, error) {
	ids := make([]uuid.UUID, 0, len(input.Items))
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, line := range input.Items {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}
	products, err := s.repo.ProductsForCheckout(ctx, ids)
	if err != nil {
		return Order{}, err
	}

	items, err := priceLines(input.Items, products)
	if err != nil {
		return Order{}, err
	}
	subtotal, total := Totals(items, s.shipping)
	order := Order{
		UserID:          input.CustomerID,
		Status:          input.PaymentMethod.InitialStatus(),
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   PaymentPending,
		Subtotal:        subtotal,
		ShippingCost:    s.shipping,
		Total:           total,
		ShippingAddress: input.ShippingAddress,
	}
	if input.BkashTransactionID != "" {
		order.BkashTransactionID = &input.BkashTransactionID
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		order.Notes = &notes
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		stored.Items = make([]Item, 0, len(items))
		for _, item := range items {
			item.OrderID = stored.ID
			saved, err := tx.InsertItem(ctx, item)
			if err != nil {
				return err
			}
			stored.Items = append(stored.Items, saved)
		}
		order = stored
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// priceLines snapshots each requested line from live product data. Volume is
// checked per product across all lines; it is not reserved, fulfillment
// enforces it again under lock.
func priceLines(lines []LineInput, products map[uuid.UUID]ProductSnapshot) ([]Item, error) {
	needed := make(map[uuid.UUID]decimal.Decimal)
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok || !p.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}
		price, ok := p.Prices.Price(line.Size)
		if !ok {
			return nil, fmt.Errorf("%w: %s %dml", ErrSizeUnavailable, p.Name, line.Size)
		}
		needed[p.ID] = needed[p.ID].Add(inventory.Required(line.Size, line.Quantity))
		if p.CurrentVolume.LessThan(needed[p.ID]) {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}
		items = append(items, Item{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductBrand: p.Brand,
			BatchCode:    p.BatchCode,
			SizeValue:    line.Size,
			UnitPrice:    price,
			Quantity:     line.Quantity,
		})
	}
	return items, nil
}

// Get returns an order. Customers only see their own orders.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor shared.Actor) (Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !actor.IsAdmin() && order.UserID != actor.ID {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

// ListForCustomer returns the customer's orders newest first.
func (s *Service) ListForCustomer(ctx context.Context, userID uuid.UUID, page, perPage int) ([]Order, shared.Pagination, error) {
	return s.list(ctx, ListFilter{UserID: uuid.NullUUID{UUID: userID, Valid: true}, Page: page, PerPage: perPage})
}

// ListAll returns orders across customers, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) ([]Order, shared.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Pagination{}, ErrInvalidStatus
	}
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter ListFilter) ([]Order, shared.Pagination, error) {
	p := shared.NewPagination(filter.Page, filter.PerPage, 0)
	orders, total, err := s.repo.List(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return orders, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// UpdateStatus moves an order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id, actorID uuid.UUID, update StatusUpdate) (Order, error) {
	if !update.Status.Valid() {
		return Order{}, ErrInvalidStatus
	}
	if update.Status == StatusDecanting {
		return Order{}, ErrUseFulfillment
	}
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if !CanTransition(order.Status, update.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, update.Status)
		}
		now := s.now().UTC()
		order.Status = update.Status
		switch update.Status {
		case StatusShipped:
			order.ShippedAt = &now
		case StatusDelivered:
			order.DeliveredAt = &now
		}
		if tracking := strings.TrimSpace(update.TrackingNumber); tracking != "" {
			order.TrackingNumber = &tracking
		}
		if notes := strings.TrimSpace(update.Notes); notes != "" {
			order.Notes = &notes
		}
		return tx.UpdateStatus(ctx, order)
	})
	if err != nil {
		return Order{}, err
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{
		ActorID:  actorID,
		Action:   "orders:update_status",
		Entity:   "order",
		EntityID: id.String(),
		Meta:     map[string]any{"from": string(from), "to": string(update.Status)},
	}, realtime.Change{Table: realtime.TableOrders, Action: realtime.ActionUpdate, ID: id.String()})
	return s.repo.Get(ctx, id)
}

// UpdatePaymentStatus records a payment confirmation. Marking a bKash order
// paid releases it from pending_payment to new.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id, actorID uuid.UUID, update PaymentUpdate) (Order, error) {
	if !update.PaymentStatus.Valid() {
		return Order{}, ErrInvalidPaymentStatus
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		order.PaymentStatus = update.PaymentStatus
		if txID := strings.TrimSpace(update.BkashTransactionID); txID != "" {
			order.BkashTransactionID = &txID
		}
		if update.PaymentStatus == PaymentPaid && order.Status == StatusPendingPayment {
			order.Status = StatusNew
		}
		return tx.UpdatePayment(ctx, order)
	})
	if err != nil {
		return Order{}, err
	}
	s.effects.AfterCommit(ctx, &shared.AuditLog{
		ActorID:  actorID,
		Action:   "orders:update_payment",
		Entity:   "order",
		EntityID: id.String(),
		Meta:     map[string]any{"payment_status": string(update.PaymentStatus)},
	}, realtime.Change{Table: realtime.TableOrders, Action: realtime.ActionUpdate, ID: id.String()})
	return s.repo.Get(ctx, id)
}
