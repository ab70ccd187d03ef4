package orders

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/shared"
)

// IdempotencyHeader carries the client-chosen checkout key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes checkout and order management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers customer-facing order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAll(rbac.PermOrdersPlace)).Post("/", h.handlePlace)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermOrdersViewOwn))
		r.Get("/", h.handleListOwn)
		r.Get("/{id}", h.handleGet)
	})
}

// MountAdminRoutes registers order management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermOrdersManage))
		r.Get("/", h.handleListAll)
		r.Post("/", h.handlePlace)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}/status", h.handleStatus)
		r.Patch("/{id}/payment", h.handlePayment)
	})
}

type placeRequest struct {
	CustomerID         *uuid.UUID      `json:"customer_id"`
	PaymentMethod      string          `json:"payment_method" validate:"required,oneof=cod bkash"`
	BkashTransactionID string          `json:"bkash_transaction_id" validate:"max=100"`
	ShippingAddress    ShippingAddress `json:"shipping_address"`
	Notes              string          `json:"notes" validate:"max=1000"`
	Items              []LineInput     `json:"items" validate:"required,min=1,max=50,dive"`
	ProcessImmediately bool            `json:"process_immediately"`
}

func (h *Handler) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.Fail(w, err, "validation_failed", nil)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := PlaceOrderInput{
		ActorID:            actor.ID,
		CustomerID:         actor.ID,
		ByAdmin:            actor.IsAdmin(),
		PaymentMethod:      PaymentMethod(req.PaymentMethod),
		BkashTransactionID: req.BkashTransactionID,
		ShippingAddress:    req.ShippingAddress,
		Notes:              req.Notes,
		Items:              req.Items,
		IdempotencyKey:     r.Header.Get(IdempotencyHeader),
		AutoFulfill:        req.ProcessImmediately,
	}
	if actor.IsAdmin() && req.CustomerID != nil {
		input.CustomerID = *req.CustomerID
	}
	result, err := h.service.Place(r.Context(), input)
	if err != nil {
		if httpx.StatusOf(err) == http.StatusInternalServerError {
			h.logger.Error("place order", slog.Any("error", err))
		}
		httpx.Fail(w, err, errorCode(err), nil)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	payload := map[string]any{"order": result.Order, "replayed": result.Replayed}
	if result.FulfillmentCode != "" {
		payload["fulfillment"] = map[string]any{"success": false, "code": result.FulfillmentCode, "error": result.FulfillmentErr}
	}
	httpx.Succeed(w, status, payload)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrOrderNotFound)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	orders, pagination, err := h.service.ListForCustomer(r.Context(), actor.ID, page, perPage)
	if err != nil {
		h.logger.Error("list own orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders, "pagination": pagination})
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	filter := ListFilter{Status: Status(r.URL.Query().Get("status")), Page: page, PerPage: perPage}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, httpx.NewError(httpx.ErrValidation, "user_id must be a uuid"))
			return
		}
		filter.UserID = uuid.NullUUID{UUID: id, Valid: true}
	}
	orders, pagination, err := h.service.ListAll(r.Context(), filter)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders, "pagination": pagination})
}

type statusRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
	Notes          string `json:"notes" validate:"max=1000"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrOrderNotFound)
		return
	}
	var req statusRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.UpdateStatus(r.Context(), id, actor.ID, StatusUpdate{
		Status:         Status(req.Status),
		TrackingNumber: req.TrackingNumber,
		Notes:          req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type paymentRequest struct {
	PaymentStatus      string `json:"payment_status" validate:"required"`
	BkashTransactionID string `json:"bkash_transaction_id" validate:"max=100"`
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrOrderNotFound)
		return
	}
	var req paymentRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.UpdatePaymentStatus(r.Context(), id, actor.ID, PaymentUpdate{
		PaymentStatus:      PaymentStatus(req.PaymentStatus),
		BkashTransactionID: req.BkashTransactionID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
