package httpx

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

// AuthnMiddleware resolves the caller and rejects the request with 401 when
// that fails. The reason is logged, never returned.
func AuthnMiddleware(a sessionx.Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, err := a.Authenticate(r)
			if err != nil {
				if !errors.Is(err, sessionx.ErrNoSession) {
					slogx.FromContext(ctx).Warn("session rejected", "err", err)
				}
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
				return
			}

			ctx = WithIdentity(ctx, id)
			ctx = slogx.With(ctx, "user_id", id.UserID, "auth_method", id.Method)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
