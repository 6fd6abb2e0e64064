package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "PORT", "STAFFDASH_STORE_DRIVER", "AUTH_AUDIENCE", "ACTIVITY_SINK", "RATELIMIT_STRICT_REQUESTS", "TRUSTED_PROXIES"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "development", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, DriverSQLite, cfg.StoreDriver)
	require.Equal(t, "staffdash.db", cfg.DatabaseFile)
	require.Equal(t, service.DefaultIssuer, cfg.TOTPIssuer)
	require.Equal(t, service.DefaultPendingSetupTTL, cfg.PendingSetupTTL)
	require.Equal(t, []string{"staffdash"}, cfg.AuthAudience)
	require.Equal(t, service.SinkAll, cfg.ActivitySink)
	require.Equal(t, httpx.StrictLimit, cfg.RateLimits.Strict)
	require.Equal(t, service.AuditBestEffort, cfg.auditPolicy())
	require.Empty(t, cfg.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("STAFFDASH_STORE_DRIVER", "Postgres")
	t.Setenv("STAFFDASH_POSTGRES_URL", "postgres://localhost/staffdash")
	t.Setenv("STAFFDASH_PENDING_SETUP_TTL", "45")
	t.Setenv("HOUSEKEEPING_INTERVAL", "90s")
	t.Setenv("AUTH_AUDIENCE", "staffdash, billing ,")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("ACTIVITY_SINK", "DB")
	t.Setenv("ACTIVITY_REQUIRED", "1")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "3")
	t.Setenv("RATELIMIT_STRICT_WINDOW_SEC", "30")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.1")

	cfg := LoadConfig()
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, DriverPostgres, cfg.StoreDriver)
	require.Equal(t, 45*time.Minute, cfg.PendingSetupTTL)
	require.Equal(t, 90*time.Second, cfg.HousekeepingInterval)
	require.Equal(t, []string{"staffdash", "billing"}, cfg.AuthAudience)
	require.True(t, cfg.SessionCookieSecure)
	require.Equal(t, service.SinkDB, cfg.ActivitySink)
	require.Equal(t, service.AuditRequired, cfg.auditPolicy())
	require.Equal(t, 3, cfg.RateLimits.Strict.RequestsPerWindow)
	require.Equal(t, 30*time.Second, cfg.RateLimits.Strict.Window)
	require.Equal(t, []string{"10.0.0.0/8", "172.16.0.1"}, cfg.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STAFFDASH_TOTP_ISSUER=Agency Staff\n"), 0o600))
	t.Setenv("STAFFDASH_TOTP_ISSUER", "")
	// godotenv never overrides variables that are already set, even empty.
	require.NoError(t, os.Unsetenv("STAFFDASH_TOTP_ISSUER"))

	cfg := LoadConfig()
	require.Equal(t, "Agency Staff", cfg.TOTPIssuer)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{Port: 8080, StoreDriver: DriverSQLite, ActivitySink: service.SinkAll}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"unknown driver":          func(c *Config) { c.StoreDriver = "redis" },
		"postgres without url":    func(c *Config) { c.StoreDriver = DriverPostgres },
		"unknown sink":            func(c *Config) { c.ActivitySink = "kafka" },
		"required audit to log":   func(c *Config) { c.ActivitySink = service.SinkLog; c.ActivityRequired = true },
		"required audit when off": func(c *Config) { c.ActivitySink = service.SinkOff; c.ActivityRequired = true },
		"port out of range":       func(c *Config) { c.Port = 70000 },
		"malformed proxy":         func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/33"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
