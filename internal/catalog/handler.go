package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/shared"
)

// Handler exposes the catalog over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers public catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListActive)
	r.Get("/{id}", h.handleGet)
}

// MountAdminRoutes registers product management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermCatalogEdit))
		r.Get("/", h.handleListAll)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Post("/{id}/activate", h.handleSetActive(true))
		r.Post("/{id}/deactivate", h.handleSetActive(false))
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	products, pagination, err := h.service.List(r.Context(), ListFilter{
		Gender:  Gender(r.URL.Query().Get("gender")),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "pagination": pagination})
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	products, pagination, err := h.service.List(r.Context(), ListFilter{IncludeInactive: true, Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "pagination": pagination})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrProductNotFound)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	product, err := h.service.Get(r.Context(), id, actor.IsAdmin())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	product, err := h.service.Create(r.Context(), actor.ID, input)
	if err != nil {
		if httpx.StatusOf(err) == http.StatusInternalServerError {
			h.logger.Error("create product", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrProductNotFound)
		return
	}
	// Volume fields are accepted so edit forms can post the whole product; they are dropped.
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	product, err := h.service.Update(r.Context(), actor.ID, id, input.Details)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, ErrProductNotFound)
			return
		}
		actor, _ := shared.ActorFromContext(r.Context())
		if err := h.service.SetActive(r.Context(), actor.ID, id, active); err != nil {
			httpx.RespondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrProductNotFound)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor.ID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
