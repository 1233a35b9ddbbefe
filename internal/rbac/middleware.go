package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shaid-7908/display-doctor-v2/internal/platform/httpx"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
)

// Middleware guards routes by the permissions granted through the actor's
// roles. Handlers mount it per route group with the scopes they need.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny admits requests holding at least one of the given permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.guard(perms, func(granted map[string]struct{}, required []string) bool {
		for _, p := range required {
			if _, ok := granted[p]; ok {
				return true
			}
		}
		return false
	})
}

// RequireAll admits requests holding every one of the given permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.guard(perms, func(granted map[string]struct{}, required []string) bool {
		for _, p := range required {
			if _, ok := granted[p]; !ok {
				return false
			}
		}
		return true
	})
}

func (m Middleware) guard(perms []string, admit func(map[string]struct{}, []string) bool) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actorID := shared.ActorIDFromContext(r.Context())
			if actorID == 0 {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}
			names, err := m.Service.EffectivePermissions(r.Context(), actorID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac permission lookup", slog.Int64("actor_id", actorID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "permission lookup failed")
				return
			}
			granted := make(map[string]struct{}, len(names))
			for _, p := range names {
				granted[strings.ToLower(p)] = struct{}{}
			}
			if !admit(granted, required) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			unique[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(unique))
	for p := range unique {
		out = append(out, p)
	}
	return out
}
