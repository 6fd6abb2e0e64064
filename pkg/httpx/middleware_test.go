package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
	"github.com/stretchr/testify/require"
)

func fixedAuth(id sessionx.Identity, err error) sessionx.Authenticator {
	return sessionx.AuthenticatorFunc(func(*http.Request) (sessionx.Identity, error) {
		return id, err
	})
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IdentityFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.UserID))
	})

	t.Run("attaches identity", func(t *testing.T) {
		h := httpx.Chain(echo, httpx.AuthnMiddleware(fixedAuth(sessionx.Identity{UserID: "u1"}, nil)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "u1", rec.Body.String())
	})

	for name, err := range map[string]error{
		"no session":      sessionx.ErrNoSession,
		"invalid session": sessionx.ErrInvalidSession,
	} {
		t.Run(name, func(t *testing.T) {
			h := httpx.Chain(echo, httpx.AuthnMiddleware(fixedAuth(sessionx.Identity{}, err)))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Contains(t, rec.Body.String(), `"error":"unauthenticated"`)
			require.NotContains(t, rec.Body.String(), "sessionx")
		})
	}
}

func TestRequireAnyRole(t *testing.T) {
	t.Parallel()

	run := func(mws ...httpx.Middleware) int {
		rec := httptest.NewRecorder()
		httpx.Chain(okHandler, mws...).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec.Code
	}

	admin := httpx.AuthnMiddleware(fixedAuth(sessionx.Identity{UserID: "a", Role: "admin"}, nil))
	user := httpx.AuthnMiddleware(fixedAuth(sessionx.Identity{UserID: "b", Role: "user"}, nil))

	require.Equal(t, http.StatusOK, run(admin, httpx.RequireAnyRole("Admin")))
	require.Equal(t, http.StatusForbidden, run(user, httpx.RequireAnyRole("admin", "billing")))
	require.Equal(t, http.StatusUnauthorized, run(httpx.RequireAnyRole("admin")))
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("a"), nil, mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "a,b", strings.Join(order, ","))
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var dst struct {
		Code string `json:"code"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"123456"}`))
	require.NoError(t, httpx.DecodeJSON(req, &dst))
	require.Equal(t, "123456", dst.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, httpx.DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	require.Error(t, httpx.DecodeJSON(req, &dst))
}
