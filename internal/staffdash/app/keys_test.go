package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
	"github.com/aussiebroadwan/staffdash/pkg/jwtx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

func newTestSigner(t *testing.T, kid string) *jwtx.EdDSASigner {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	return signer
}

// jwksServer serves whatever key set is currently stored in doc.
func jwksServer(t *testing.T, doc *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc.Load().(jwtx.JWKS))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestKeyRefresher(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	first := newTestSigner(t, "k1")
	var doc atomic.Value
	doc.Store(jwtx.JWKS{Keys: []jwtx.JWK{first.PublicJWK()}})
	srv := jwksServer(t, &doc)

	keys := jwtx.NewKeySet()
	r := &KeyRefresher{Keys: keys, URL: srv.URL, Logger: slogx.Discard()}

	require.NoError(t, r.Refresh(ctx))
	require.True(t, keys.IsReady())
	_, err := keys.Get("k1")
	require.NoError(t, err)

	t.Run("rotation replaces keys", func(t *testing.T) {
		second := newTestSigner(t, "k2")
		doc.Store(jwtx.JWKS{Keys: []jwtx.JWK{second.PublicJWK()}})

		require.NoError(t, r.Refresh(ctx))
		_, err := keys.Get("k2")
		require.NoError(t, err)
		_, err = keys.Get("k1")
		require.ErrorIs(t, err, jwtx.ErrNoKey)
	})

	t.Run("empty document keeps previous keys", func(t *testing.T) {
		doc.Store(jwtx.JWKS{})
		require.Error(t, r.Refresh(ctx))
		require.True(t, keys.IsReady())
	})
}

func TestKeyRefresherStartStop(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "k1")
	var doc atomic.Value
	doc.Store(jwtx.JWKS{Keys: []jwtx.JWK{signer.PublicJWK()}})
	srv := jwksServer(t, &doc)

	keys := jwtx.NewKeySet()
	r := &KeyRefresher{Keys: keys, URL: srv.URL, Interval: 10 * time.Millisecond, Logger: slogx.Discard()}
	r.Start()
	require.Eventually(t, keys.IsReady, time.Second, 5*time.Millisecond)
	r.Stop()
}

func TestInitSessionsWithJWKS(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "idp-1")
	var doc atomic.Value
	doc.Store(jwtx.JWKS{Keys: []jwtx.JWK{signer.PublicJWK()}})
	srv := jwksServer(t, &doc)

	cfg := Config{
		Env:          "production",
		AuthIssuer:   "https://id.agency.test",
		AuthAudience: []string{"staffdash"},
		JWKSURL:      srv.URL,
	}
	sessions, err := InitSessions(context.Background(), cfg, slogx.Discard())
	require.NoError(t, err)
	require.NotNil(t, sessions.Refresher)
	require.Nil(t, sessions.DevSigner)
	require.True(t, sessions.Keys.IsReady())

	token, err := signer.Sign(jwtx.NewSessionClaims("u1", "ops@agency.test", "admin", "",
		cfg.AuthIssuer, cfg.AuthAudience, time.Minute, time.Now()))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	id, err := sessions.Authenticator.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, "u1", id.UserID)
	require.Equal(t, "admin", id.Role)

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u1", "ops@agency.test", "admin", "",
			"https://elsewhere.test", cfg.AuthAudience, time.Minute, time.Now()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		_, err = sessions.Authenticator.Authenticate(req)
		require.Error(t, err)
	})
}

func TestInitSessionsDevelopmentSigner(t *testing.T) {
	t.Parallel()

	cfg := Config{Env: "development", AuthAudience: []string{"staffdash"}}
	sessions, err := InitSessions(context.Background(), cfg, slogx.Discard())
	require.NoError(t, err)
	require.NotNil(t, sessions.DevSigner)
	require.Nil(t, sessions.Refresher)

	token, err := sessions.DevToken("u1", "dev@agency.test", "admin", cfg.AuthAudience)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	id, err := sessions.Authenticator.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, "dev@agency.test", id.Email)
}

func TestInitSessionsRequiresSource(t *testing.T) {
	t.Parallel()

	_, err := InitSessions(context.Background(), Config{Env: "production"}, slogx.Discard())
	require.Error(t, err)

	sessions, err := InitSessions(context.Background(), Config{
		Env:               "production",
		SessionSecret:     "0123456789abcdef0123456789abcdef",
		SessionCookieName: "staffdash_session",
	}, slogx.Discard())
	require.NoError(t, err)
	require.Nil(t, sessions.Keys)
	_, err = sessions.DevToken("u1", "a@agency.test", "user", nil)
	require.Error(t, err)
}
