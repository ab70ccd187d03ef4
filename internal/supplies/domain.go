package supplies

import (
	"time"

	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/inventory"
)

// Supply is packaging stock such as atomizers, boxes and labels.
type Supply struct {
	ID                uuid.UUID       `json:"id"`
	ItemName          string          `json:"item_name"`
	SizeValue         *inventory.Size `json:"size_value,omitempty"`
	StockCount        int             `json:"stock_count"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Low reports whether the supply should be reordered.
func (s Supply) Low() bool {
	return s.StockCount <= s.LowStockThreshold
}

// Input creates or replaces a supply.
type Input struct {
	ItemName          string          `json:"item_name" validate:"required,max=100"`
	SizeValue         *inventory.Size `json:"size_value" validate:"omitempty,oneof=10 15 30 100"`
	StockCount        int             `json:"stock_count" validate:"gte=0"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

// DefaultLowStockThreshold applies when a supply is created without one.
const DefaultLowStockThreshold = 10
