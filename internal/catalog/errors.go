package catalog

import "github.com/cologne-noir/decant/internal/platform/httpx"

var (
	ErrProductNotFound = httpx.NewError(httpx.ErrNotFound, "catalog: product not found")
	ErrInvalidVolume   = httpx.NewError(httpx.ErrValidation, "catalog: volumes must satisfy 0 <= current <= total <= 1000 ml with at most 2 decimal places")
	ErrNoPrice         = httpx.NewError(httpx.ErrValidation, "catalog: at least one size must have a price")
	ErrInvalidPrice    = httpx.NewError(httpx.ErrValidation, "catalog: prices must be positive")
	ErrProductInUse    = httpx.NewError(httpx.ErrConflict, "catalog: product has orders or volume history, deactivate it instead")
)
