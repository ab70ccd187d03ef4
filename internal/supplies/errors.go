package supplies

import "github.com/cologne-noir/decant/internal/platform/httpx"

var (
	ErrSupplyNotFound = httpx.NewError(httpx.ErrNotFound, "supplies: supply not found")
	ErrNegativeStock  = httpx.NewError(httpx.ErrValidation, "supplies: stock cannot go below zero")
)
