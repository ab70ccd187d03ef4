package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cologne-noir/decant/internal/shared"
)

func serve(h http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIdentifyAndRequireAdmin(t *testing.T) {
	m := Middleware{}
	var seen shared.Actor
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := m.Identify(m.RequireAdmin(ok))
	admin := uuid.New()

	rr := serve(h, map[string]string{DefaultIDHeader: admin.String(), DefaultRoleHeader: "admin"})
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, admin, seen.ID)

	rr = serve(h, map[string]string{DefaultIDHeader: uuid.NewString(), DefaultRoleHeader: "customer"})
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(h, map[string]string{DefaultIDHeader: "not-a-uuid"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnknownRoleFallsBackToCustomer(t *testing.T) {
	m := Middleware{}
	h := m.Identify(m.RequireAny(PermOrdersPlace)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := shared.ActorFromContext(r.Context())
		require.Equal(t, shared.RoleCustomer, actor.Role)
		w.WriteHeader(http.StatusOK)
	})))
	rr := serve(h, map[string]string{DefaultIDHeader: uuid.NewString(), DefaultRoleHeader: "superuser"})
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireAllPermissions(t *testing.T) {
	m := Middleware{}
	h := m.Identify(m.RequireAll(PermOrdersManage, PermOrdersFulfill)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	require.Equal(t, http.StatusOK, serve(h, map[string]string{DefaultIDHeader: uuid.NewString(), DefaultRoleHeader: "ADMIN"}).Code)
	require.Equal(t, http.StatusForbidden, serve(h, map[string]string{DefaultIDHeader: uuid.NewString()}).Code)
}
