package shared

import (
	"errors"

	"github.com/cologne-noir/decant/internal/platform/httpx"
)

var (
	// ErrActorRequired indicates the request carried no identity.
	ErrActorRequired = httpx.NewError(httpx.ErrUnauthorized, "actor required")
	// ErrAdminRequired indicates a non-admin attempted an admin operation.
	ErrAdminRequired = httpx.NewError(httpx.ErrForbidden, "admin role required")
	// ErrIdempotencyConflict indicates a duplicate key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)
