package orders

import (
	"errors"

	"github.com/cologne-noir/decant/internal/platform/httpx"
)

var (
	ErrOrderNotFound          = httpx.NewError(httpx.ErrNotFound, "orders: order not found")
	ErrEmptyOrder             = httpx.NewError(httpx.ErrValidation, "orders: at least one item is required")
	ErrInvalidPaymentMethod   = httpx.NewError(httpx.ErrValidation, "orders: invalid payment method")
	ErrBkashTransactionNeeded = httpx.NewError(httpx.ErrValidation, "orders: bKash transaction ID is required for bKash payments")
	ErrCustomerRequired       = httpx.NewError(httpx.ErrValidation, "orders: customer is required")
	ErrAutoFulfillNotAllowed  = httpx.NewError(httpx.ErrValidation, "orders: immediate fulfillment is only available for admin cash on delivery orders")
	ErrInvalidStatus          = httpx.NewError(httpx.ErrValidation, "orders: invalid status")
	ErrInvalidPaymentStatus   = httpx.NewError(httpx.ErrValidation, "orders: invalid payment status")
	ErrInvalidTransition      = httpx.NewError(httpx.ErrUnprocessable, "orders: status transition not allowed")
	ErrUseFulfillment         = httpx.NewError(httpx.ErrUnprocessable, "orders: use order processing to start decanting")
	ErrProductUnavailable     = httpx.NewError(httpx.ErrUnprocessable, "orders: product is not available")
	ErrSizeUnavailable        = httpx.NewError(httpx.ErrUnprocessable, "orders: size is not sold for this product")
	ErrInsufficientStock      = httpx.NewError(httpx.ErrUnprocessable, "orders: not enough volume left for this item")
	ErrRequestInFlight        = httpx.NewError(httpx.ErrConflict, "orders: an identical request is still being processed")
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrProductUnavailable), errors.Is(err, ErrSizeUnavailable):
		return "product_unavailable"
	case errors.Is(err, ErrRequestInFlight):
		return "request_in_flight"
	case errors.Is(err, httpx.ErrValidation):
		return "validation_failed"
	default:
		return "internal"
	}
}
