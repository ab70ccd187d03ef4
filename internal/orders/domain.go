package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
)

// Status is the fulfillment stage of an order.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusNew            Status = "new"
	StatusDecanting      Status = "decanting"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusNew, StatusDecanting, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Pending reports whether the order still awaits fulfillment.
func (s Status) Pending() bool {
	return s == StatusPendingPayment || s == StatusNew
}

var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusNew, StatusCancelled},
	StatusNew:            {StatusCancelled},
	StatusDecanting:      {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusDelivered},
}

// CanTransition reports whether an admin may move an order from one status to
// another. new -> decanting is absent: only fulfillment performs it.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentStatus tracks payment confirmation.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "cod"
	PaymentBkash PaymentMethod = "bkash"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentBkash
}

// InitialStatus returns the status a new order starts in.
func (m PaymentMethod) InitialStatus() Status {
	if m == PaymentBkash {
		return StatusPendingPayment
	}
	return StatusNew
}

// Fulfillable reports whether an order in this state may be decanted.
func Fulfillable(status Status, payment PaymentStatus, method PaymentMethod) bool {
	return status == StatusNew && (payment == PaymentPaid || method == PaymentCOD)
}

// ShippingAddress is the delivery snapshot stored with the order.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required,max=100"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"required,phone"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// Order is a customer purchase.
type Order struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	Status             Status          `json:"status"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	BkashTransactionID *string         `json:"bkash_transaction_id,omitempty"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	Total              decimal.Decimal `json:"total"`
	ShippingAddress    ShippingAddress `json:"shipping_address"`
	TrackingNumber     *string         `json:"tracking_number,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	ShippedAt          *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time      `json:"delivered_at,omitempty"`
	FulfilledAt        *time.Time      `json:"fulfilled_at,omitempty"`
	FulfilledBy        uuid.NullUUID   `json:"fulfilled_by"`
	Items              []Item          `json:"items,omitempty"`
}

// Item is an order line snapshot, independent of later product edits.
type Item struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductBrand string          `json:"product_brand"`
	BatchCode    *string         `json:"batch_code,omitempty"`
	SizeValue    inventory.Size  `json:"size_value"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	CreatedAt    time.Time       `json:"created_at"`
}

// LineTotal returns unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals computes subtotal and total for items plus shipping.
func Totals(items []Item, shipping decimal.Decimal) (subtotal, total decimal.Decimal) {
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal, subtotal.Add(shipping)
}

// LineInput is one requested line at checkout.
type LineInput struct {
	ProductID uuid.UUID      `json:"product_id" validate:"required"`
	Size      inventory.Size `json:"size_value" validate:"required,oneof=10 15 30 100"`
	Quantity  int            `json:"quantity" validate:"required,gte=1,lte=20"`
}

// PlaceOrderInput carries a checkout or an admin-created order.
type PlaceOrderInput struct {
	ActorID            uuid.UUID
	CustomerID         uuid.UUID
	ByAdmin            bool
	PaymentMethod      PaymentMethod
	BkashTransactionID string
	ShippingAddress    ShippingAddress
	Notes              string
	Items              []LineInput
	IdempotencyKey     string
	AutoFulfill        bool
}

// PlaceOrderResult reports the stored order and, when requested, the fulfillment outcome.
type PlaceOrderResult struct {
	Order           Order  `json:"order"`
	Replayed        bool   `json:"replayed"`
	FulfillmentCode string `json:"fulfillment_code,omitempty"`
	FulfillmentErr  string `json:"fulfillment_error,omitempty"`
}

// StatusUpdate is an admin status change.
type StatusUpdate struct {
	Status         Status
	TrackingNumber string
	Notes          string
}

// PaymentUpdate is an admin payment status change.
type PaymentUpdate struct {
	PaymentStatus      PaymentStatus
	BkashTransactionID string
}

// ListFilter narrows order listings.
type ListFilter struct {
	UserID  uuid.NullUUID
	Status  Status
	Page    int
	PerPage int
}
