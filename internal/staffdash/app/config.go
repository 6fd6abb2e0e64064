package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	staffhttp "github.com/aussiebroadwan/staffdash/internal/staffdash/http"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
)

// Store drivers selectable with STAFFDASH_STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env                 string        // Environment (development, staging, production) (default: development)
	Version             string        // Reported by /livez and in logs (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	StoreDriver   string // sqlite, mongo, postgres or memory (default: sqlite)
	DatabaseFile  string // SQLite database file (default: staffdash.db)
	MongoURI      string // (default: mongodb://localhost:27017)
	MongoDatabase string // (default: staffdash)
	PostgresURL   string // Required when StoreDriver is postgres

	TOTPIssuer           string        // Issuer shown in authenticator apps (default: Staff Dashboard)
	MasterKey            string        // Key material for sealing TOTP secrets; empty means an ephemeral key
	PendingSetupTTL      time.Duration // Unconfirmed setups older than this are aborted (default: 30m)
	HousekeepingInterval time.Duration // (default: 10m)

	AuthIssuer          string   // Expected iss of bearer tokens; empty accepts any
	AuthAudience        []string // Accepted aud values (default: staffdash)
	JWKSURL             string   // Identity provider JWKS; empty disables bearer tokens
	JWKSRefreshInterval time.Duration

	SessionSecret       string // Cookie store key shared with the frontend; empty disables cookie sessions
	SessionCookieName   string
	SessionCookieSecure bool

	ActivitySink     service.ActivitySink
	ActivityRequired bool // Fail operations whose activity entry cannot be stored

	RateLimits     staffhttp.RateLimits
	TrustedProxies []string // CIDRs or addresses allowed to set X-Forwarded-For (default: none)

	BootstrapAdminEmail string // Created as an admin on start when missing
}

// LoadConfig reads the environment, after loading .env when present.
func LoadConfig() Config {
	loadDotEnv(".env")

	cfg := Config{
		Env:                 getEnvOrDefault("ENV", "development"),
		Version:             getEnvOrDefault("SERVICE_VERSION", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		StoreDriver:   strings.ToLower(getEnvOrDefault("STAFFDASH_STORE_DRIVER", DriverSQLite)),
		DatabaseFile:  getEnvOrDefault("STAFFDASH_DATABASE_FILE", "staffdash.db"),
		MongoURI:      getEnvOrDefault("STAFFDASH_MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("STAFFDASH_MONGO_DATABASE", "staffdash"),
		PostgresURL:   os.Getenv("STAFFDASH_POSTGRES_URL"),

		TOTPIssuer:           getEnvOrDefault("STAFFDASH_TOTP_ISSUER", service.DefaultIssuer),
		MasterKey:            os.Getenv("STAFFDASH_MASTER_KEY"),
		PendingSetupTTL:      getEnvDurationOrDefault("STAFFDASH_PENDING_SETUP_TTL", service.DefaultPendingSetupTTL),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 10*time.Minute),

		AuthIssuer:          os.Getenv("AUTH_ISSUER"),
		AuthAudience:        getEnvListOrDefault("AUTH_AUDIENCE", []string{"staffdash"}),
		JWKSURL:             os.Getenv("AUTH_JWKS_URL"),
		JWKSRefreshInterval: getEnvDurationOrDefault("AUTH_JWKS_REFRESH_INTERVAL", 15*time.Minute),

		SessionSecret:       os.Getenv("SESSION_SECRET"),
		SessionCookieName:   getEnvOrDefault("SESSION_COOKIE_NAME", sessionx.DefaultCookieName),
		SessionCookieSecure: getEnvBoolOrDefault("SESSION_COOKIE_SECURE", false),

		ActivitySink:     service.ActivitySink(strings.ToLower(getEnvOrDefault("ACTIVITY_SINK", string(service.SinkAll)))),
		ActivityRequired: getEnvBoolOrDefault("ACTIVITY_REQUIRED", false),

		RateLimits: staffhttp.RateLimits{
			Strict:   httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit),
			Moderate: httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit),
			Lenient:  httpx.ParseRateLimitFromEnv("LENIENT", httpx.LenientLimit),
		},

		TrustedProxies: getEnvListOrDefault("TRUSTED_PROXIES", nil),

		BootstrapAdminEmail: os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
	}

	return cfg
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverSQLite, DriverMongo, DriverMemory:
	case DriverPostgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("STAFFDASH_POSTGRES_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STAFFDASH_STORE_DRIVER %q", c.StoreDriver))
	}

	if _, err := service.ParseActivitySink(string(c.ActivitySink)); err != nil {
		errs = append(errs, fmt.Errorf("ACTIVITY_SINK: %w", err))
	}
	if c.ActivityRequired && (c.ActivitySink == service.SinkOff || c.ActivitySink == service.SinkLog) {
		errs = append(errs, errors.New("ACTIVITY_REQUIRED needs an ACTIVITY_SINK that writes to the store"))
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

func (c Config) auditPolicy() service.AuditPolicy {
	if c.ActivityRequired {
		return service.AuditRequired
	}
	return service.AuditBestEffort
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", path, "error", err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

// getEnvListOrDefault splits a comma separated value, dropping blanks.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
