package sessionx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
	"github.com/aussiebroadwan/staffdash/pkg/jwtx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
	"github.com/stretchr/testify/require"
)

const issuer = "https://id.example.test"

func newSignerAndVerifier(t *testing.T) (*jwtx.EdDSASigner, jwtx.Verifier) {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("k1", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	return signer, jwtx.NewVerifier(keys, issuer, nil)
}

func TestBearerAuthenticator(t *testing.T) {
	t.Parallel()

	signer, verifier := newSignerAndVerifier(t)
	auth := sessionx.BearerAuthenticator{Verifier: verifier}

	token, err := signer.Sign(jwtx.NewSessionClaims(
		"user-1", "Alice@Agency.Test", "Admin", "Alice", issuer, nil, time.Minute, time.Now().UTC(),
	))
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		id, err := auth.Authenticate(r)
		require.NoError(t, err)
		require.Equal(t, "user-1", id.UserID)
		require.Equal(t, "alice@agency.test", id.Email)
		require.Equal(t, "admin", id.Role)
		require.Equal(t, "bearer", id.Method)
	})

	t.Run("no header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := auth.Authenticate(r)
		require.ErrorIs(t, err, sessionx.ErrNoSession)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		_, err := auth.Authenticate(r)
		require.ErrorIs(t, err, sessionx.ErrInvalidSession)
	})

	t.Run("bad token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer nope")
		_, err := auth.Authenticate(r)
		require.ErrorIs(t, err, sessionx.ErrInvalidSession)
	})
}

func TestCookieAuthenticator(t *testing.T) {
	t.Parallel()

	store, err := sessionx.NewCookieStore("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)
	auth := sessionx.CookieAuthenticator{Store: store}

	// Issue a cookie the way the frontend does
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, auth.Save(rec, req, sessionx.Identity{
		UserID: "user-2", Email: "bob@agency.test", Role: "billing", Name: "Bob",
	}))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sessionx.DefaultCookieName, cookies[0].Name)

	t.Run("valid cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookies[0])

		id, err := auth.Authenticate(r)
		require.NoError(t, err)
		require.Equal(t, "user-2", id.UserID)
		require.Equal(t, "billing", id.Role)
		require.Equal(t, "cookie", id.Method)
	})

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := auth.Authenticate(r)
		require.ErrorIs(t, err, sessionx.ErrNoSession)
	})

	t.Run("cookie signed with another secret", func(t *testing.T) {
		other, err := sessionx.NewCookieStore("ffffffffffffffffffffffffffffffff", false)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookies[0])
		_, err = sessionx.CookieAuthenticator{Store: other}.Authenticate(r)
		require.ErrorIs(t, err, sessionx.ErrInvalidSession)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := sessionx.NewCookieStore("", false)
		require.Error(t, err)
	})
}

func TestChain(t *testing.T) {
	t.Parallel()

	none := sessionx.AuthenticatorFunc(func(*http.Request) (sessionx.Identity, error) {
		return sessionx.Identity{}, sessionx.ErrNoSession
	})
	reject := sessionx.AuthenticatorFunc(func(*http.Request) (sessionx.Identity, error) {
		return sessionx.Identity{}, sessionx.ErrInvalidSession
	})
	accept := sessionx.AuthenticatorFunc(func(*http.Request) (sessionx.Identity, error) {
		return sessionx.Identity{UserID: "u"}, nil
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)

	id, err := sessionx.Chain{none, accept}.Authenticate(r)
	require.NoError(t, err)
	require.Equal(t, "u", id.UserID)

	_, err = sessionx.Chain{reject, accept}.Authenticate(r)
	require.True(t, errors.Is(err, sessionx.ErrInvalidSession))

	_, err = sessionx.Chain{none, nil}.Authenticate(r)
	require.ErrorIs(t, err, sessionx.ErrNoSession)
}
