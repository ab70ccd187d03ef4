package inventory

import (
	"errors"

	"github.com/cologne-noir/decant/internal/platform/httpx"
)

var (
	// ErrProductNotFound indicates the product id matched no row.
	ErrProductNotFound = httpx.NewError(httpx.ErrNotFound, "inventory: product not found")
	// ErrVolumeOutOfRange indicates a volume below zero or above capacity.
	ErrVolumeOutOfRange = httpx.NewError(httpx.ErrValidation, "inventory: volume out of range")
	// ErrVolumePrecision indicates more decimal places than volumes are stored with.
	ErrVolumePrecision = httpx.NewError(httpx.ErrValidation, "inventory: volume allows at most 2 decimal places")
	// ErrInvalidReason indicates an unknown adjustment reason.
	ErrInvalidReason = httpx.NewError(httpx.ErrValidation, "inventory: invalid adjustment reason")
	// ErrReservedReason indicates a manual attempt to use the fulfillment reason.
	ErrReservedReason = httpx.NewError(httpx.ErrValidation, "inventory: order_fulfillment is reserved for order processing")
	// ErrConflict indicates the transaction could not be serialized within the retry budget.
	ErrConflict = httpx.NewError(httpx.ErrConflict, "inventory: conflict, retry")
)

// Error codes rendered in failure results.
const (
	CodeProductNotFound  = "product_not_found"
	CodeVolumeOutOfRange = "volume_out_of_range"
	CodeInvalidReason    = "invalid_reason"
	CodeConflict         = "conflict"
	CodeValidation       = "validation_failed"
	CodeInternal         = "internal"
)

// ErrorCode maps ledger errors to stable result codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return CodeProductNotFound
	case errors.Is(err, ErrVolumeOutOfRange):
		return CodeVolumeOutOfRange
	case errors.Is(err, ErrInvalidReason), errors.Is(err, ErrReservedReason):
		return CodeInvalidReason
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, httpx.ErrValidation):
		return CodeValidation
	default:
		return CodeInternal
	}
}
