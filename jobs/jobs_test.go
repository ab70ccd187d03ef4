package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cologne-noir/decant/internal/inventory"
	jobmetrics "github.com/cologne-noir/decant/internal/jobs"
	"github.com/cologne-noir/decant/internal/orders"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/stats"
)

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func sampleOrder() orders.Order {
	return orders.Order{
		ID:            uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000001"),
		PaymentMethod: orders.PaymentCOD,
		Subtotal:      decimal.RequireFromString("4500"),
		ShippingCost:  decimal.RequireFromString("60"),
		Total:         decimal.RequireFromString("4560"),
		ShippingAddress: orders.ShippingAddress{
			FullName: "Nadia Rahman",
			Email:    "nadia@example.com",
		},
		Items: []orders.Item{{
			ProductName:  "Aventus",
			ProductBrand: "Creed",
			SizeValue:    inventory.Size30ml,
			UnitPrice:    decimal.RequireFromString("2250"),
			Quantity:     2,
		}},
	}
}

func TestOrderConfirmation(t *testing.T) {
	mail := OrderConfirmation(sampleOrder())
	require.Equal(t, "nadia@example.com", mail.To)
	require.Contains(t, mail.Subject, "3F2A9C1E")
	require.Contains(t, mail.Body, "Creed Aventus (30ml) x2")
	require.Contains(t, mail.Body, "4,560")
	require.Contains(t, mail.Body, "cash on delivery")
}

func TestNewSendEmailTaskRequiresRecipient(t *testing.T) {
	_, err := NewSendEmailTask(SendEmailPayload{Subject: "hi"})
	require.Error(t, err)
}

func TestMailJobHandle(t *testing.T) {
	job := NewMailJob(slog.Default(), testMetrics())
	task, err := NewSendEmailTask(OrderConfirmation(sampleOrder()))
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewTaskRegistry(t *testing.T) {
	for _, name := range Periodic() {
		task, err := NewTask(name, TriggerCLI)
		require.NoError(t, err)
		require.Equal(t, name, task.Type())
		var body map[string]any
		require.NoError(t, json.Unmarshal(task.Payload(), &body))
		require.Equal(t, TriggerCLI, body["trigger"])
	}
	_, err := NewTask("ledger:explode", TriggerCLI)
	require.Error(t, err)

	regs, err := DefaultSchedule()
	require.NoError(t, err)
	require.Len(t, regs, 4)
	for _, reg := range regs {
		require.NotEmpty(t, reg.Spec)
	}
}

type fakeLowStock struct {
	threshold decimal.Decimal
	products  []inventory.LowStockProduct
	err       error
}

func (f *fakeLowStock) LowStock(_ context.Context, threshold decimal.Decimal) ([]inventory.LowStockProduct, error) {
	f.threshold = threshold
	return f.products, f.err
}

type gauge struct{ n int }

func (g *gauge) SetLowStock(n int) { g.n = n }

func TestLowStockScanJob(t *testing.T) {
	source := &fakeLowStock{products: []inventory.LowStockProduct{
		{ID: uuid.New(), Name: "Oud Wood", Brand: "Tom Ford", CurrentVolume: decimal.NewFromInt(4), Status: inventory.StockLow},
		{ID: uuid.New(), Name: "Sauvage", Brand: "Dior", CurrentVolume: decimal.Zero, Status: inventory.StockOut},
	}}
	g := &gauge{}
	job := NewLowStockScanJob(source, g, slog.Default(), testMetrics())

	task, err := NewTask(TaskLowStockScan, TriggerCLI)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 2, g.n)
	require.True(t, source.threshold.IsZero())

	source.err = errors.New("db down")
	require.Error(t, job.Handle(context.Background(), task))
	require.Equal(t, 2, g.n)
}

type fakeReconciler struct {
	reports []inventory.ReconcileReport
	err     error
}

func (f fakeReconciler) ReconcileAll(context.Context) ([]inventory.ReconcileReport, error) {
	return f.reports, f.err
}

func TestReconcileJob(t *testing.T) {
	reports := []inventory.ReconcileReport{
		{ProductID: uuid.New(), Drift: decimal.NewFromInt(5)},
		{ProductID: uuid.New(), Drift: decimal.NewFromInt(-2)},
		{ProductID: uuid.New(), Balanced: true},
	}
	job := NewReconcileJob(fakeReconciler{reports: reports}, slog.Default(), testMetrics())
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskInventoryReconcile, nil)))

	job = NewReconcileJob(fakeReconciler{err: errors.New("boom")}, slog.Default(), testMetrics())
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskInventoryReconcile, nil)))

	require.Error(t, (&ReconcileJob{}).Handle(context.Background(), nil))
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) Refresh(context.Context) (stats.AdminStats, error) {
	f.calls++
	return stats.AdminStats{TotalOrders: 3}, nil
}

func TestStatsWarmupJob(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewStatsWarmupJob(refresher, slog.Default(), testMetrics())
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskStatsWarmup, nil)))
	require.Equal(t, 1, refresher.calls)
}

type fakeCleaner struct{ olderThan time.Duration }

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 4, nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, slog.Default(), testMetrics())

	task, err := NewTask(TaskIdempotencyCleanup, TriggerCLI)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, DefaultIdempotencyRetention, cleaner.olderThan)

	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: 1})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, data)))
	require.Equal(t, time.Hour, cleaner.olderThan)
}

func TestClientOrderPlacedEnqueuesMail(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	order := sampleOrder()
	require.NoError(t, client.OrderPlaced(context.Background(), order))
	pending, err := mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	order.ShippingAddress.Email = ""
	require.NoError(t, client.OrderPlaced(context.Background(), order))
	pending, err = mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthHandler(t *testing.T) {
	m := rbac.Middleware{}
	serve := func(inspector QueueInspector, role string) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Use(m.Identify)
		NewHandler(inspector, slog.Default(), m).MountRoutes(r)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(rbac.DefaultIDHeader, uuid.NewString())
		req.Header.Set(rbac.DefaultRoleHeader, role)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := serve(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 7, Retry: 2, Paused: true, Latency: 1500 * time.Millisecond}}, "admin")
	require.Equal(t, http.StatusOK, rr.Code)
	var health QueueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, QueueHealth{Queue: "default", Pending: 7, Retry: 2, Paused: true, LatencySeconds: 1.5}, health)

	rr = serve(nil, "admin")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, QueueHealth{Queue: "default"}, health)

	rr = serve(fakeInspector{err: errors.New("redis down")}, "admin")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = serve(fakeInspector{}, "customer")
	require.Equal(t, http.StatusForbidden, rr.Code)
}
