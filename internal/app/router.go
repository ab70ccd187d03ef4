package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cologne-noir/decant/internal/catalog"
	"github.com/cologne-noir/decant/internal/customers"
	"github.com/cologne-noir/decant/internal/fulfillment"
	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/observability"
	"github.com/cologne-noir/decant/internal/orders"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/stats"
	"github.com/cologne-noir/decant/internal/supplies"
	"github.com/cologne-noir/decant/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RBACMiddleware     rbac.Middleware
	CatalogHandler     *catalog.Handler
	OrdersHandler      *orders.Handler
	FulfillmentHandler *fulfillment.Handler
	InventoryHandler   *inventory.Handler
	CustomersHandler   *customers.Handler
	SuppliesHandler    *supplies.Handler
	StatsHandler       *stats.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	Database           Pinger
}

// NewRouter constructs the chi.Router with storefront defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
		RBAC:    params.RBACMiddleware,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.Database, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", params.OrdersHandler.MountRoutes)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAdmin)
			if params.CatalogHandler != nil {
				r.Route("/products", params.CatalogHandler.MountAdminRoutes)
			}
			r.Route("/orders", func(r chi.Router) {
				if params.OrdersHandler != nil {
					params.OrdersHandler.MountAdminRoutes(r)
				}
				if params.FulfillmentHandler != nil {
					params.FulfillmentHandler.MountRoutes(r)
				}
			})
			if params.InventoryHandler != nil {
				r.Route("/inventory", params.InventoryHandler.MountRoutes)
			}
			if params.CustomersHandler != nil {
				r.Route("/customers", params.CustomersHandler.MountRoutes)
			}
			if params.SuppliesHandler != nil {
				r.Route("/supplies", params.SuppliesHandler.MountRoutes)
			}
			if params.StatsHandler != nil {
				params.StatsHandler.MountRoutes(r)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}

func healthHandler(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				if logger != nil {
					logger.Warn("health check", slog.Any("error", err))
				}
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
