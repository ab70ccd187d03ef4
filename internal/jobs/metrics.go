// Package jobmetrics instruments worker tasks.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded for each task run.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics holds the worker collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	drift       *prometheus.GaugeVec
	pruned      prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decant_jobs_total",
			Help: "Worker task runs by task type and outcome.",
		}, []string{"job", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decant_jobs_failures_total",
			Help: "Worker task runs that returned a retryable error.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "decant_job_duration_seconds",
			Help:    "Worker task run time.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "decant_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per task type.",
		}, []string{"job"}),
		drift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "decant_ledger_drift_products",
			Help: "Products whose volume disagrees with their adjustment history at the last reconcile.",
		}, []string{"kind"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "decant_idempotency_keys_pruned_total",
			Help: "Expired idempotency keys deleted by the cleanup task.",
		}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.lastSuccess, m.drift, m.pruned)
	return m
}

// Tracker times one task run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run and returns err unchanged. Errors wrapping
// asynq.SkipRetry count as skipped, not failed.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	outcome := Classify(err)
	m.runs.WithLabelValues(t.job, outcome).Inc()
	switch outcome {
	case OutcomeOK:
		m.lastSuccess.WithLabelValues(t.job).SetToCurrentTime()
	case OutcomeFailed:
		m.failures.WithLabelValues(t.job).Inc()
	}
	return err
}

// Classify maps a handler result to its outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeSkipped
	default:
		return OutcomeFailed
	}
}

// SetDrift records the drifted product count for kind from the last reconcile.
func (m *Metrics) SetDrift(kind string, count int) {
	if m == nil {
		return
	}
	m.drift.WithLabelValues(kind).Set(float64(count))
}

// AddPruned counts deleted idempotency keys.
func (m *Metrics) AddPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}
