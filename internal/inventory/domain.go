package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentReason enumerates why a product's volume changed.
type AdjustmentReason string

const (
	ReasonSpillage         AdjustmentReason = "spillage"
	ReasonEvaporation      AdjustmentReason = "evaporation"
	ReasonQualityCheck     AdjustmentReason = "quality_check"
	ReasonDamaged          AdjustmentReason = "damaged"
	ReasonCorrection       AdjustmentReason = "correction"
	ReasonOrderFulfillment AdjustmentReason = "order_fulfillment"
	ReasonOther            AdjustmentReason = "other"
)

// Valid reports whether r is a known reason.
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonSpillage, ReasonEvaporation, ReasonQualityCheck, ReasonDamaged,
		ReasonCorrection, ReasonOrderFulfillment, ReasonOther:
		return true
	}
	return false
}

// Manual reports whether an admin may record r directly. Fulfillment entries
// are written only by the fulfillment engine and always carry an order id.
func (r AdjustmentReason) Manual() bool {
	return r.Valid() && r != ReasonOrderFulfillment
}

// ProductVolume is the ledger's view of a product row.
type ProductVolume struct {
	ID            uuid.UUID
	Name          string
	TotalVolume   decimal.Decimal
	CurrentVolume decimal.Decimal
	IsActive      bool
}

// Adjustment is one immutable volume_adjustments row.
type Adjustment struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      uuid.UUID        `json:"product_id"`
	AdjustedBy     uuid.UUID        `json:"adjusted_by"`
	PreviousVolume decimal.Decimal  `json:"previous_volume"`
	NewVolume      decimal.Decimal  `json:"new_volume"`
	Amount         decimal.Decimal  `json:"adjustment_amount"`
	Reason         AdjustmentReason `json:"reason"`
	Notes          string           `json:"notes,omitempty"`
	OrderID        uuid.NullUUID    `json:"order_id"`
	CreatedAt      time.Time        `json:"created_at"`
}

// AdjustVolumeInput carries a manual volume correction.
type AdjustVolumeInput struct {
	ProductID uuid.UUID
	ActorID   uuid.UUID
	NewVolume decimal.Decimal
	Reason    AdjustmentReason
	Notes     string
}

// AdjustVolumeResult reports the applied change.
type AdjustVolumeResult struct {
	AdjustmentID   uuid.UUID
	PreviousVolume decimal.Decimal
	NewVolume      decimal.Decimal
	Adjustment     decimal.Decimal
}

// LowStockProduct is a row of the low stock report.
type LowStockProduct struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	CurrentVolume decimal.Decimal `json:"current_volume_ml"`
	TotalVolume   decimal.Decimal `json:"total_volume_ml"`
	Status        StockStatus     `json:"status"`
}

// LedgerTotals aggregates a product's stored volumes and its adjustment history.
type LedgerTotals struct {
	TotalVolume   decimal.Decimal
	CurrentVolume decimal.Decimal
	Adjustments   decimal.Decimal
	Entries       int
}

// ReconcileReport compares stored volume with the volume rebuilt from the ledger.
type ReconcileReport struct {
	ProductID uuid.UUID       `json:"product_id"`
	Expected  decimal.Decimal `json:"expected"`
	Actual    decimal.Decimal `json:"actual"`
	Drift     decimal.Decimal `json:"drift"`
	Entries   int             `json:"entries"`
	Balanced  bool            `json:"balanced"`
}
