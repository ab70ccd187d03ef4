package customers

import "github.com/cologne-noir/decant/internal/platform/httpx"

var (
	ErrCustomerNotFound = httpx.NewError(httpx.ErrNotFound, "customers: customer not found")
	ErrEmailTaken       = httpx.NewError(httpx.ErrDuplicate, "customers: email already registered")
)
