package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyRole lets the request through when the caller holds one of the
// roles. Must run after AuthnMiddleware.
func RequireAnyRole(roles ...string) Middleware {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
				return
			}
			if _, has := allowed[id.Role]; !has {
				WriteError(w, http.StatusForbidden, "forbidden", "You do not have permission to do that")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
