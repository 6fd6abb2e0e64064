package staffdash_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/app"
	staffhttp "github.com/aussiebroadwan/staffdash/internal/staffdash/http"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	mongostore "github.com/aussiebroadwan/staffdash/internal/staffdash/store/drivers/mongo"
	"github.com/aussiebroadwan/staffdash/pkg/dashsdk"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/idx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
)

/*
 * End-to-end tests run the whole application against a real MongoDB started
 * with testcontainers and drive it through the dashsdk client. Sessions use
 * the cookie store shared with the dashboard frontend.
 */

var relaxedLimit = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}

const (
	sessionSecret = "e2e-session-secret-0123456789abcdef"
	masterKey     = "e2e-master-key"
	adminEmail    = "root@agency.test"
)

// startMongo runs a throwaway mongo:7 container and returns its URI.
func startMongo(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor: wait.ForListeningPort("27017/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}

func e2eConfig(mongoURI, database string) app.Config {
	relaxed := staffhttp.RateLimits{Strict: relaxedLimit, Moderate: relaxedLimit, Lenient: relaxedLimit}
	return app.Config{
		Env:                  "test",
		Version:              "e2e",
		LogLevel:             "warn",
		Port:                 8080,
		ShutdownGracePeriod:  time.Second,
		StoreDriver:          app.DriverMongo,
		MongoURI:             mongoURI,
		MongoDatabase:        database,
		TOTPIssuer:           service.DefaultIssuer,
		MasterKey:            masterKey,
		PendingSetupTTL:      service.DefaultPendingSetupTTL,
		HousekeepingInterval: time.Hour,
		AuthAudience:         []string{"staffdash"},
		SessionSecret:        sessionSecret,
		SessionCookieName:    sessionx.DefaultCookieName,
		ActivitySink:         service.SinkAll,
		RateLimits:           relaxed,
		BootstrapAdminEmail:  adminEmail,
	}
}

// startService builds the application on cfg and serves it.
func startService(t *testing.T, cfg app.Config) string {
	t.Helper()

	application, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func newDatabaseName() string {
	return "staffdash_e2e_" + idx.New().String()
}

// sessionClient returns a client carrying the frontend session cookie for
// the given user.
func sessionClient(t *testing.T, baseURL string, u *dashsdk.UserResponse) *dashsdk.Client {
	t.Helper()

	cookieStore, err := sessionx.NewCookieStore(sessionSecret, false)
	require.NoError(t, err)
	auth := sessionx.CookieAuthenticator{Store: cookieStore}

	rec := httptest.NewRecorder()
	require.NoError(t, auth.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), sessionx.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	return dashsdk.NewClient(baseURL).WithCookie(cookies[0])
}

// lookupUser reads a user straight from the database, for accounts such as
// the bootstrap admin whose id is never returned over HTTP.
func lookupUser(t *testing.T, cfg app.Config, email string) *dashsdk.UserResponse {
	t.Helper()
	ctx := context.Background()

	st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	require.NoError(t, err)
	defer st.Close()

	u, err := st.Users().GetUserByEmail(ctx, email)
	require.NoError(t, err)
	return &dashsdk.UserResponse{ID: u.ID, Email: u.Email, Role: u.Role.String()}
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
