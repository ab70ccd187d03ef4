package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fulfillments    *prometheus.CounterVec
	adjustments     *prometheus.CounterVec
	retries         *prometheus.CounterVec
	lowStock        prometheus.Gauge
}

// NewMetrics menginisialisasi registry, metrik HTTP, dan metrik domain.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decant_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decant_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fulfillments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decant_fulfillments_total",
		Help: "Order fulfillment attempts by outcome code.",
	}, []string{"code"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decant_volume_adjustments_total",
		Help: "Volume adjustments written by reason.",
	}, []string{"reason"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decant_tx_retries_total",
		Help: "Transactions retried after serialization failures or deadlocks.",
	}, []string{"operation"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "decant_low_stock_products",
		Help: "Active products below the low stock threshold at the last scan.",
	})
	registry.MustRegister(requests, duration, fulfillments, adjustments, retries, lowStock)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		fulfillments:    fulfillments,
		adjustments:     adjustments,
		retries:         retries,
		lowStock:        lowStock,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ObserveFulfillment counts one fulfillment outcome. Success is recorded as "ok".
func (m *Metrics) ObserveFulfillment(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.fulfillments.WithLabelValues(code).Inc()
}

// ObserveAdjustment counts n ledger entries written with the given reason.
func (m *Metrics) ObserveAdjustment(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.adjustments.WithLabelValues(reason).Add(float64(n))
}

// ObserveRetry counts a retried transaction.
func (m *Metrics) ObserveRetry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

// SetLowStock records the size of the latest low stock scan.
func (m *Metrics) SetLowStock(n int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
