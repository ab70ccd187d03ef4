package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/shared"
)

// Handler wires HTTP endpoints for the volume ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryView))
		r.Get("/low-stock", h.handleLowStock)
		r.Get("/products/{id}/adjustments", h.handleHistory)
		r.Get("/products/{id}/reconcile", h.handleReconcile)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermInventoryAdjust))
		r.Post("/products/{id}/volume", h.handleAdjust)
	})
}

type adjustRequest struct {
	NewVolume *decimal.Decimal `json:"new_volume" validate:"required"`
	Reason    string           `json:"reason" validate:"required"`
	Notes     string           `json:"notes" validate:"max=500"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, ErrProductNotFound, CodeProductNotFound, nil)
		return
	}
	var req adjustRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.Fail(w, err, CodeValidation, nil)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.AdjustVolume(r.Context(), AdjustVolumeInput{
		ProductID: productID,
		ActorID:   actor.ID,
		NewVolume: *req.NewVolume,
		Reason:    AdjustmentReason(req.Reason),
		Notes:     req.Notes,
	})
	if err != nil {
		code := ErrorCode(err)
		if code == CodeInternal {
			h.logger.Error("adjust volume", slog.String("product_id", productID.String()), slog.Any("error", err))
		}
		httpx.Fail(w, err, code, nil)
		return
	}
	h.logger.Info("volume adjusted",
		slog.String("product_id", productID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.String("adjustment", result.Adjustment.String()))
	httpx.Succeed(w, http.StatusOK, map[string]any{
		"previous_volume": result.PreviousVolume,
		"new_volume":      result.NewVolume,
		"adjustment":      result.Adjustment,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrProductNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.History(r.Context(), productID, limit)
	if err != nil {
		h.logger.Error("list adjustments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": entries})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := decimal.Zero
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			httpx.RespondError(w, httpx.NewError(httpx.ErrValidation, "threshold must be a number"))
			return
		}
		threshold = parsed
	}
	products, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		h.logger.Error("list low stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrProductNotFound)
		return
	}
	report, err := h.service.Reconcile(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
