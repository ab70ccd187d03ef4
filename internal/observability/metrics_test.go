package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `decant_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `decant_http_request_duration_seconds_bucket{route="/test"`)
}

func TestDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveFulfillment("")
	metrics.ObserveFulfillment("insufficient_volume")
	metrics.ObserveAdjustment("order_fulfillment", 3)
	metrics.ObserveRetry("fulfillment")
	metrics.SetLowStock(4)

	body := scrape(t, metrics)
	require.Contains(t, body, `decant_fulfillments_total{code="ok"} 1`)
	require.Contains(t, body, `decant_fulfillments_total{code="insufficient_volume"} 1`)
	require.Contains(t, body, `decant_volume_adjustments_total{reason="order_fulfillment"} 3`)
	require.Contains(t, body, `decant_tx_retries_total{operation="fulfillment"} 1`)
	require.True(t, strings.Contains(body, "decant_low_stock_products 4"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveFulfillment("conflict")
	metrics.ObserveAdjustment("spillage", 1)
	metrics.ObserveRetry("ledger")
	metrics.SetLowStock(1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
