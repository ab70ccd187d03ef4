package customers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/orders"
	"github.com/cologne-noir/decant/internal/shared"
)

// Customer is a storefront profile. Its id matches the identity provider's user id.
type Customer struct {
	ID              uuid.UUID               `json:"id"`
	Email           string                  `json:"email"`
	FullName        *string                 `json:"full_name,omitempty"`
	Phone           *string                 `json:"phone,omitempty"`
	Role            shared.Role             `json:"role"`
	ShippingAddress *orders.ShippingAddress `json:"shipping_address,omitempty"`
	FavoriteBrands  []string                `json:"favorite_brands"`
	FavoriteScents  []string                `json:"favorite_scents"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// Summary is a customer with their purchase statistics.
type Summary struct {
	Customer
	OrderCount  int             `json:"order_count"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	LastOrderAt *time.Time      `json:"last_order_at,omitempty"`
}

// CreateInput registers a profile on behalf of a customer.
type CreateInput struct {
	ID              *uuid.UUID              `json:"id"`
	Email           string                  `json:"email" validate:"required,email,max=255"`
	FullName        string                  `json:"full_name" validate:"required,max=100"`
	Phone           string                  `json:"phone" validate:"omitempty,phone"`
	ShippingAddress *orders.ShippingAddress `json:"shipping_address"`
	FavoriteBrands  []string                `json:"favorite_brands" validate:"max=20,dive,max=100"`
	FavoriteScents  []string                `json:"favorite_scents" validate:"max=20,dive,max=100"`
}

// ListFilter narrows the customer directory.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}
