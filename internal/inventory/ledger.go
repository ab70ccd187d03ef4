package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is a volume change to apply to a product already locked in the current transaction.
type Entry struct {
	NewVolume decimal.Decimal
	Reason    AdjustmentReason
	Notes     string
	ActorID   uuid.UUID
	OrderID   uuid.NullUUID
}

// Post validates the entry against product, writes the new volume and appends
// the matching adjustment through tx. Both writes share tx, so either both
// commit or neither does.
func Post(ctx context.Context, tx TxRepository, product ProductVolume, e Entry) (Adjustment, error) {
	if e.NewVolume.IsNegative() || e.NewVolume.GreaterThan(product.TotalVolume) {
		return Adjustment{}, ErrVolumeOutOfRange
	}
	if !ValidScale(e.NewVolume) {
		return Adjustment{}, ErrVolumePrecision
	}
	if !e.Reason.Valid() {
		return Adjustment{}, ErrInvalidReason
	}
	if e.Reason == ReasonOrderFulfillment && !e.OrderID.Valid {
		return Adjustment{}, ErrReservedReason
	}
	if err := tx.UpdateCurrentVolume(ctx, product.ID, e.NewVolume); err != nil {
		return Adjustment{}, err
	}
	return tx.InsertAdjustment(ctx, Adjustment{
		ProductID:      product.ID,
		AdjustedBy:     e.ActorID,
		PreviousVolume: product.CurrentVolume,
		NewVolume:      e.NewVolume,
		Amount:         e.NewVolume.Sub(product.CurrentVolume),
		Reason:         e.Reason,
		Notes:          e.Notes,
		OrderID:        e.OrderID,
	})
}

// InitialFillNote marks the correction written when a product is created.
const InitialFillNote = "initial fill"

// RecordInitialFill logs the gap between capacity and the starting volume of a
// newly created product as a correction, so the product's volume can always be
// rebuilt from its total and its adjustments.
func RecordInitialFill(ctx context.Context, tx TxRepository, productID, actorID uuid.UUID) (*Adjustment, error) {
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.CurrentVolume.Equal(product.TotalVolume) {
		return nil, nil
	}
	// The row already holds the starting volume; the entry records the drop from a full bottle.
	full := product
	full.CurrentVolume = product.TotalVolume
	adj, err := Post(ctx, tx, full, Entry{
		NewVolume: product.CurrentVolume,
		Reason:    ReasonCorrection,
		Notes:     InitialFillNote,
		ActorID:   actorID,
	})
	if err != nil {
		return nil, err
	}
	return &adj, nil
}
