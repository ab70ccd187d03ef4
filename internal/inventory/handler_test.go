package inventory

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cologne-noir/decant/internal/rbac"
)

type adjustResponse struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error"`
	Code           string          `json:"code"`
	PreviousVolume decimal.Decimal `json:"previous_volume"`
	NewVolume      decimal.Decimal `json:"new_volume"`
	Adjustment     decimal.Decimal `json:"adjustment"`
}

func newTestRouter(svc *Service) http.Handler {
	m := rbac.Middleware{}
	r := chi.NewRouter()
	r.Use(m.Identify)
	r.Route("/api/admin/inventory", NewHandler(slog.Default(), svc, m).MountRoutes)
	return r
}

func postVolume(t *testing.T, h http.Handler, id, role, body string) (*httptest.ResponseRecorder, adjustResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/inventory/products/"+id+"/volume", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(rbac.DefaultIDHeader, uuid.NewString())
	req.Header.Set(rbac.DefaultRoleHeader, role)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var res adjustResponse
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	}
	return rr, res
}

func TestHandleAdjust(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "40")
	h := newTestRouter(NewService(repo, nil, nil, nil, ServiceConfig{MaxAttempts: 3}))

	rr, res := postVolume(t, h, id.String(), "admin", `{"new_volume": 32.5, "reason": "spillage", "notes": "tipped over"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, res.Success)
	require.True(t, res.PreviousVolume.Equal(dec("40")))
	require.True(t, res.NewVolume.Equal(dec("32.5")))
	require.True(t, res.Adjustment.Equal(dec("-7.5")))
	require.Len(t, repo.adjustments, 1)
	require.Equal(t, "tipped over", repo.adjustments[0].Notes)

	rr, res = postVolume(t, h, uuid.NewString(), "admin", `{"new_volume": 5, "reason": "correction"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.False(t, res.Success)
	require.Equal(t, CodeProductNotFound, res.Code)
	require.NotEmpty(t, res.Error)

	rr, res = postVolume(t, h, "nope", "admin", `{"new_volume": 5, "reason": "correction"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, CodeProductNotFound, res.Code)

	rr, res = postVolume(t, h, id.String(), "admin", `{"new_volume": 100.5, "reason": "correction"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.False(t, res.Success)
	require.Equal(t, CodeVolumeOutOfRange, res.Code)
	require.NotEmpty(t, res.Error)

	repo.failNext = 3
	rr, res = postVolume(t, h, id.String(), "admin", `{"new_volume": 30, "reason": "evaporation"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.False(t, res.Success)
	require.Equal(t, CodeConflict, res.Code)

	require.True(t, repo.products[id].CurrentVolume.Equal(dec("32.5")))
	require.Len(t, repo.adjustments, 1)

	rr, _ = postVolume(t, h, id.String(), "customer", `{"new_volume": 1, "reason": "correction"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandleAdjustRejectsBadBodies(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "40")
	h := newTestRouter(NewService(repo, nil, nil, nil, ServiceConfig{}))

	rr, res := postVolume(t, h, id.String(), "admin", `{"reason": "correction"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.False(t, res.Success)
	require.Equal(t, CodeValidation, res.Code)

	rr, res = postVolume(t, h, id.String(), "admin", `{"new_volume": 5, "reason": "order_fulfillment"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, CodeInvalidReason, res.Code)

	rr, res = postVolume(t, h, id.String(), "admin", `{"new_volume": 12.345, "reason": "correction"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, CodeValidation, res.Code)

	require.Empty(t, repo.adjustments)
}
