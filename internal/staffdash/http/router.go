package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/staffdash/api/docs" // Swagger docs
	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/jwtx"
	"github.com/aussiebroadwan/staffdash/pkg/sessionx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

// RateLimits are the per-class limits applied to routes.
type RateLimits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
}

// DefaultRateLimits mirrors the httpx presets.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	auth         sessionx.Authenticator
	keys         *jwtx.KeySet // nil when bearer tokens are disabled
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	validate     *validator.Validate

	store            store.Store
	TwoFactorService *service.TwoFactorService
	UserService      *service.UserService
	Limits           RateLimits

	// TrustedProxies may set X-Forwarded-For and X-Real-IP; empty ignores both.
	TrustedProxies httpx.TrustedProxies
}

func NewRouter(
	auth sessionx.Authenticator,
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		auth:         auth,
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		store:        st,
		Limits:       DefaultRateLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.middlewares = append([]httpx.Middleware{httpx.ClientIPMiddleware(r.TrustedProxies)}, r.middlewares...)

	r.registerTwoFactor()
	r.registerProfile()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Staff Dashboard API
//	@version		0.1.0
//	@description	Two-factor lifecycle, recovery codes and activity history for agency staff accounts.
//	@description
//	@description				Callers are identified by a bearer token from the identity provider or by the dashboard session cookie.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/staffdash
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig, mws ...httpx.Middleware) http.Handler {
	chain := append([]httpx.Middleware{httpx.AuthnMiddleware(r.auth)}, mws...)
	chain = append(chain, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, chain...)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		TwoFactorService: r.TwoFactorService,
		Validate:         r.validate,
	}

	// Code checks are brute-forceable, keep them strict.
	r.Mux.Handle("POST /2fa/setup", r.secured(h.HandleSetup, r.Limits.Moderate))
	r.Mux.Handle("POST /2fa/confirm", r.secured(h.HandleConfirm, r.Limits.Strict))
	r.Mux.Handle("POST /2fa/verify", r.secured(h.HandleVerify, r.Limits.Strict))
	r.Mux.Handle("POST /2fa/disable", r.secured(h.HandleDisable, r.Limits.Moderate))
	r.Mux.Handle("POST /2fa/recovery-codes/generate", r.secured(h.HandleGenerateRecoveryCodes, r.Limits.Moderate))
	r.Mux.Handle("GET /2fa/recovery-codes", r.secured(h.HandleListRecoveryCodes, r.Limits.Moderate))
	r.Mux.Handle("GET /2fa/status", r.secured(h.HandleStatus, r.Limits.Lenient))
}

func (r *Router) registerProfile() {
	h := &UserHandler{UserService: r.UserService, Validate: r.validate}

	r.Mux.Handle("GET /me", r.secured(h.HandleMe, r.Limits.Lenient))
	r.Mux.Handle("GET /me/activity", r.secured(h.HandleMyActivity, r.Limits.Lenient))
}

func (r *Router) registerAdmin() {
	h := &UserHandler{UserService: r.UserService, Validate: r.validate}
	admin := httpx.RequireAnyRole(domain.RoleAdmin.String())

	r.Mux.Handle("GET /users/{id}/activity", r.secured(h.HandleUserActivity, r.Limits.Moderate, admin))
	r.Mux.Handle("POST /users", r.secured(h.HandleCreate, r.Limits.Moderate, admin))
	r.Mux.Handle("POST /users/{id}/deactivate", r.secured(h.HandleDeactivate, r.Limits.Moderate, admin))
	r.Mux.Handle("POST /users/{id}/activate", r.secured(h.HandleActivate, r.Limits.Moderate, admin))
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
}
