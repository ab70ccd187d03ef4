package fulfillment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/orders"
	"github.com/cologne-noir/decant/internal/rbac"
)

func newTestRouter(svc *Service) http.Handler {
	m := rbac.Middleware{}
	r := chi.NewRouter()
	r.Use(m.Identify)
	r.Route("/orders", NewHandler(slog.Default(), svc, m).MountRoutes)
	return r
}

func post(t *testing.T, h http.Handler, path, role string) (*httptest.ResponseRecorder, Result) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(rbac.DefaultIDHeader, uuid.NewString())
	req.Header.Set(rbac.DefaultRoleHeader, role)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var res Result
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	}
	return rr, res
}

func TestHandleProcess(t *testing.T) {
	repo := newMemoryRepo()
	a := repo.addProduct("100", "12")
	first := repo.addOrder(orders.StatusNew, orders.PaymentPaid, orders.PaymentBkash, line{a, inventory.Size10ml, 1})
	second := repo.addOrder(orders.StatusNew, orders.PaymentPaid, orders.PaymentBkash, line{a, inventory.Size10ml, 1})
	h := newTestRouter(NewService(repo, nil, nil, nil, ServiceConfig{}))

	rr, res := post(t, h, "/orders/"+first.String()+"/process", "admin")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, res.Success)
	require.NotEmpty(t, res.Message)

	rr, res = post(t, h, "/orders/"+first.String()+"/process", "admin")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.False(t, res.Success)
	require.Equal(t, CodeAlreadyProcessed, res.Code)

	rr, res = post(t, h, "/orders/"+second.String()+"/process", "admin")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, CodeInsufficientVolume, res.Code)
	require.Equal(t, a, *res.ProductID)

	rr, res = post(t, h, "/orders/nope/process", "admin")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, CodeOrderNotFound, res.Code)

	rr, _ = post(t, h, "/orders/"+second.String()+"/process", "customer")
	require.Equal(t, http.StatusForbidden, rr.Code)
}
