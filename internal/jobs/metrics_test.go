package jobmetrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestTrackerOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("stats:warmup").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("stats:warmup").End(boom), boom)
	skipped := fmt.Errorf("bad payload: %w", asynq.SkipRetry)
	require.ErrorIs(t, m.Track("mail:send").End(skipped), asynq.SkipRetry)

	body := scrape(t, reg)
	require.Contains(t, body, `decant_jobs_total{job="stats:warmup",outcome="ok"} 1`)
	require.Contains(t, body, `decant_jobs_total{job="stats:warmup",outcome="failed"} 1`)
	require.Contains(t, body, `decant_jobs_total{job="mail:send",outcome="skipped"} 1`)
	require.Contains(t, body, `decant_jobs_failures_total{job="stats:warmup"} 1`)
	require.NotContains(t, body, `decant_jobs_failures_total{job="mail:send"}`)
	require.Contains(t, body, `decant_job_last_success_timestamp_seconds{job="stats:warmup"}`)
}

func TestDriftAndPruned(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SetDrift("volume_ahead", 2)
	m.SetDrift("volume_ahead", 1)
	m.AddPruned(5)
	m.AddPruned(0)

	body := scrape(t, reg)
	require.Contains(t, body, `decant_ledger_drift_products{kind="volume_ahead"} 1`)
	require.Contains(t, body, "decant_idempotency_keys_pruned_total 5")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.SetDrift("ledger_ahead", 1)
	m.AddPruned(1)
	require.Equal(t, OutcomeFailed, Classify(errors.New("x")))
}
