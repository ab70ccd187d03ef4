package fulfillment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/httpx"
)

var (
	// ErrOrderNotFound indicates the order id matched no row.
	ErrOrderNotFound = httpx.NewError(httpx.ErrNotFound, "fulfillment: order not found")
	// ErrAlreadyProcessed indicates the order's volume was already deducted.
	ErrAlreadyProcessed = httpx.NewError(httpx.ErrUnprocessable, "fulfillment: order already processed")
	// ErrInvalidOrderState indicates the order is not new and paid (or cash on delivery).
	ErrInvalidOrderState = httpx.NewError(httpx.ErrUnprocessable, "fulfillment: order is not in a fulfillable state")
	// ErrInsufficientVolume is the kind matched by *InsufficientVolumeError.
	ErrInsufficientVolume = httpx.NewError(httpx.ErrUnprocessable, "fulfillment: insufficient volume")
	// ErrConflict indicates the transaction could not be serialized within the retry budget.
	ErrConflict = httpx.NewError(httpx.ErrConflict, "fulfillment: conflict, retry")
)

// InsufficientVolumeError names the first product that cannot cover the order.
type InsufficientVolumeError struct {
	ProductID   uuid.UUID
	ProductName string
	Required    decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientVolumeError) Error() string {
	return fmt.Sprintf("fulfillment: insufficient volume for product %s: need %sml, have %sml",
		e.ProductID, e.Required.String(), e.Available.String())
}

// Unwrap lets errors.Is match ErrInsufficientVolume.
func (e *InsufficientVolumeError) Unwrap() error { return ErrInsufficientVolume }

// Result codes.
const (
	CodeInsufficientVolume = "insufficient_volume"
	CodeAlreadyProcessed   = "already_processed"
	CodeInvalidOrderState  = "invalid_order_state"
	CodeOrderNotFound      = "order_not_found"
	CodeProductNotFound    = "product_not_found"
	CodeConflict           = "conflict"
	CodeInternal           = "internal"
)

// ErrorCode maps engine errors to stable result codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientVolume):
		return CodeInsufficientVolume
	case errors.Is(err, ErrAlreadyProcessed):
		return CodeAlreadyProcessed
	case errors.Is(err, ErrInvalidOrderState):
		return CodeInvalidOrderState
	case errors.Is(err, ErrOrderNotFound):
		return CodeOrderNotFound
	case errors.Is(err, inventory.ErrProductNotFound):
		return CodeProductNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// ResultFromError converts an engine error into a failure result.
func ResultFromError(err error) Result {
	res := Result{Success: false, Code: ErrorCode(err), Error: err.Error()}
	if res.Code == CodeInternal {
		res.Error = "internal error"
	}
	var insufficient *InsufficientVolumeError
	if errors.As(err, &insufficient) {
		id := insufficient.ProductID
		res.ProductID = &id
	}
	return res
}
