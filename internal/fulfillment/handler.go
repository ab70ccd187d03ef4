package fulfillment

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/shared"
)

// Handler exposes the fulfillment engine over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs fulfillment handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers fulfillment routes on an orders router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAll(rbac.PermOrdersFulfill)).Post("/{id}/process", h.handleProcess)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSON(w, http.StatusNotFound, ResultFromError(ErrOrderNotFound))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.ProcessDecantOrder(r.Context(), orderID, actor.ID)
	if err != nil {
		httpx.JSON(w, httpx.StatusOf(err), result)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
