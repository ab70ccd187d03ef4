package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/orders"
)

// Order is the part of an order row the engine needs.
type Order struct {
	ID            uuid.UUID
	Status        orders.Status
	PaymentStatus orders.PaymentStatus
	PaymentMethod orders.PaymentMethod
	FulfilledAt   *time.Time
}

// Item is an order line to decant.
type Item struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Size        inventory.Size
	Quantity    int
}

// Required returns the ml this line consumes.
func (i Item) Required() decimal.Decimal {
	return inventory.Required(i.Size, i.Quantity)
}

// Result is the structured outcome of ProcessDecantOrder.
type Result struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	Code        string     `json:"code,omitempty"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	Adjustments int        `json:"adjustments,omitempty"`
}
