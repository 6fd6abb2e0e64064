package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	staffhttp "github.com/aussiebroadwan/staffdash/internal/staffdash/http"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store/drivers/memory"
	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
	"github.com/aussiebroadwan/staffdash/pkg/dashsdk"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/jwtx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

const (
	testIssuer   = "https://id.agency.test"
	testAudience = "staffdash"
)

var relaxed = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}

type testEnv struct {
	server  *httptest.Server
	store   store.Store
	users   *service.UserService
	signer  *jwtx.EdDSASigner
	keys    *jwtx.KeySet
	cookies sessionx.CookieAuthenticator
}

type envOption func(*staffhttp.Router)

func withLimits(l staffhttp.RateLimits) envOption {
	return func(r *staffhttp.Router) { r.Limits = l }
}

func withTrustedProxies(t *testing.T, cidrs ...string) envOption {
	trusted, err := httpx.ParseTrustedProxies(cidrs)
	require.NoError(t, err)
	return func(r *staffhttp.Router) { r.TrustedProxies = trusted }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	return newEnvWithStore(t, memory.NewStore(), opts...)
}

func newEnvWithStore(t *testing.T, st store.Store, opts ...envOption) *testEnv {
	t.Helper()

	box, err := cryptox.NewEphemeralSecretBox()
	require.NoError(t, err)

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	cookieStore, err := sessionx.NewCookieStore(strings.Repeat("s", 32), false)
	require.NoError(t, err)
	cookies := sessionx.CookieAuthenticator{Store: cookieStore}

	activity := &service.ActivityService{Store: st, Logger: slogx.Discard(), Sink: service.SinkDB}
	users := &service.UserService{Store: st, Activity: activity}

	auth := sessionx.Chain{
		sessionx.BearerAuthenticator{Verifier: jwtx.NewVerifier(keys, testIssuer, []string{testAudience})},
		cookies,
	}
	router := staffhttp.NewRouter(auth, keys, "test", st, slogx.Discard())
	router.TwoFactorService = &service.TwoFactorService{
		Store:    st,
		Activity: activity,
		TOTP:     service.NewTOTPProvider(service.DefaultIssuer),
		Sealer:   box,
	}
	router.UserService = users
	router.Limits = staffhttp.RateLimits{Strict: relaxed, Moderate: relaxed, Lenient: relaxed}
	for _, opt := range opts {
		opt(router)
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:  srv,
		store:   st,
		users:   users,
		signer:  signer,
		keys:    keys,
		cookies: cookies,
	}
}

func (e *testEnv) createUser(t *testing.T, email string, role domain.Role) domain.UserProjection {
	t.Helper()
	u, err := e.users.Create(context.Background(), service.CreateUserInput{
		Email: email,
		Name:  "Test " + string(role),
		Role:  string(role),
	}, "", domain.RequestMeta{})
	require.NoError(t, err)
	return u
}

func (e *testEnv) anonymous() *dashsdk.Client {
	return dashsdk.NewClient(e.server.URL)
}

func (e *testEnv) token(t *testing.T, id, email string, role domain.Role) string {
	t.Helper()
	claims := jwtx.NewSessionClaims(id, email, string(role), "", testIssuer,
		[]string{testAudience}, jwtx.DefaultSessionTTL, time.Now())
	tok, err := e.signer.Sign(claims)
	require.NoError(t, err)
	return tok
}

// clientFor returns a client holding a bearer token for u.
func (e *testEnv) clientFor(t *testing.T, u domain.UserProjection) *dashsdk.Client {
	t.Helper()
	return e.anonymous().WithBearer(e.token(t, u.ID, u.Email, u.Role))
}

// cookieFor mints the session cookie the dashboard frontend would set.
func (e *testEnv) cookieFor(t *testing.T, u domain.UserProjection) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, e.cookies.Save(rec, req, sessionx.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role.String(),
	}))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func (e *testEnv) activityTypes(t *testing.T, userID string) []string {
	t.Helper()
	entries, err := e.store.Activity().ListActivityByUser(context.Background(), userID, domain.ActivityListLimit)
	require.NoError(t, err)
	types := make([]string, 0, len(entries))
	for _, entry := range entries {
		types = append(types, entry.ActivityType)
	}
	return types
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// nextCode returns the code for the following time step. A code is accepted
// once, so a verify straight after confirming setup needs a later step.
func nextCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now().Add(30*time.Second))
	require.NoError(t, err)
	return code
}

// enable runs setup and confirm and returns the recovery codes.
func enable(t *testing.T, c *dashsdk.Client) []string {
	t.Helper()
	ctx := context.Background()
	enrollment, err := c.BeginSetup(ctx)
	require.NoError(t, err)
	codes, err := c.ConfirmSetup(ctx, currentCode(t, enrollment.Secret))
	require.NoError(t, err)
	return codes
}

// postAs sends a raw JSON POST with a bearer token and extra headers.
func (e *testEnv) postAs(t *testing.T, token, path, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	var apiErr *dashsdk.APIError
	require.True(t, errors.As(err, &apiErr), "want *dashsdk.APIError, got %T: %v", err, err)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Message)
	if code != "" {
		require.Equal(t, code, apiErr.Code)
	}
}
