package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cologne-noir/decant/internal/platform/httpx"
	"github.com/cologne-noir/decant/internal/shared"
)

// Default identity headers set by the upstream session provider.
const (
	DefaultIDHeader   = "X-Actor-ID"
	DefaultRoleHeader = "X-Actor-Role"
)

// Middleware wires identity and authorization helpers for HTTP handlers.
type Middleware struct {
	Logger     *slog.Logger
	IDHeader   string
	RoleHeader string
}

// Identify places the upstream actor in the request context. Requests without
// identity headers pass through anonymously.
func (m Middleware) Identify(next http.Handler) http.Handler {
	idHeader := m.IDHeader
	if idHeader == "" {
		idHeader = DefaultIDHeader
	}
	roleHeader := m.RoleHeader
	if roleHeader == "" {
		roleHeader = DefaultRoleHeader
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(idHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("rbac parse actor id", slog.String("value", raw))
			}
			httpx.RespondError(w, shared.ErrActorRequired)
			return
		}
		role := shared.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(roleHeader))))
		if !role.Valid() {
			role = shared.RoleCustomer
		}
		ctx := shared.ContextWithActor(r.Context(), shared.Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects anonymous requests.
func (m Middleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.ActorFromContext(r.Context()); !ok {
			httpx.RespondError(w, shared.ErrActorRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose actor is not an admin.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.ActorFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrActorRequired)
			return
		}
		if !actor.IsAdmin() {
			httpx.RespondError(w, shared.ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrActorRequired)
				return
			}
			if hasAnyPermission(EffectivePermissions(actor.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrActorRequired)
				return
			}
			if hasAllPermissions(EffectivePermissions(actor.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func permissionSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	return set
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
