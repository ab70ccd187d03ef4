package customers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/rbac"
	"github.com/cologne-noir/decant/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]Summary
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[uuid.UUID]Summary)}
}

func (r *memoryRepo) Insert(_ context.Context, c Customer) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.customers {
		if existing.Email == c.Email {
			return Customer{}, ErrEmailTaken
		}
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.customers[c.ID] = Summary{Customer: c, TotalSpent: decimal.Zero}
	return c, nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.customers[id]
	if !ok {
		return Summary{}, ErrCustomerNotFound
	}
	return s, nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]Summary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Summary
	for _, s := range r.customers {
		if filter.Search != "" && !strings.Contains(s.Email, filter.Search) {
			continue
		}
		out = append(out, s)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}

func (r *memoryRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.customers), nil
}

func TestCreateCustomer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	c, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Email:          " Farhan@Example.com ",
		FullName:       "Farhan Ahmed",
		Phone:          "01712-345678",
		FavoriteBrands: []string{"Creed", "Amouage"},
	})
	require.NoError(t, err)
	require.Equal(t, "farhan@example.com", c.Email)
	require.Equal(t, shared.RoleCustomer, c.Role)
	require.NotEqual(t, uuid.Nil, c.ID)
	require.Equal(t, "Farhan Ahmed", *c.FullName)

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Email: "farhan@example.com", FullName: "Other"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Email: "not-an-email", FullName: "X"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Email: "x@example.com", FullName: "X", Phone: "12"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCreateKeepsProvidedID(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	id := uuid.New()
	c, err := svc.Create(context.Background(), uuid.New(), CreateInput{ID: &id, Email: "a@example.com", FullName: "A"})
	require.NoError(t, err)
	require.Equal(t, id, c.ID)
}

func TestHandlerRequiresCustomersPermission(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	m := rbac.Middleware{}
	r := chi.NewRouter()
	r.Use(m.Identify)
	r.Route("/customers", NewHandler(slog.Default(), svc, m).MountRoutes)

	body := `{"email":"nadia@example.com","full_name":"Nadia Rahman"}`
	req := httptest.NewRequest(http.MethodPost, "/customers/", strings.NewReader(body))
	req.Header.Set(rbac.DefaultIDHeader, uuid.NewString())
	req.Header.Set(rbac.DefaultRoleHeader, "customer")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/customers/", strings.NewReader(body))
	req.Header.Set(rbac.DefaultIDHeader, uuid.NewString())
	req.Header.Set(rbac.DefaultRoleHeader, "admin")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Customer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodGet, "/customers/"+created.ID.String(), nil)
	req.Header.Set(rbac.DefaultIDHeader, uuid.NewString())
	req.Header.Set(rbac.DefaultRoleHeader, "admin")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var got Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "nadia@example.com", got.Email)
	require.Equal(t, 0, got.OrderCount)
}
