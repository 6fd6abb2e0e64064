package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	staffhttp "github.com/aussiebroadwan/staffdash/internal/staffdash/http"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/service"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store/drivers/memory"
	mongostore "github.com/aussiebroadwan/staffdash/internal/staffdash/store/drivers/mongo"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store/drivers/postgres"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store/drivers/sqlite"
	"github.com/aussiebroadwan/staffdash/pkg/cryptox"
	"github.com/aussiebroadwan/staffdash/pkg/httpx"
	"github.com/aussiebroadwan/staffdash/pkg/slogx"
)

// Application encapsulates the staff dashboard service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	sessions *Sessions
	sealer   service.Sealer

	activityService     *service.ActivityService
	twoFactorService    *service.TwoFactorService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *staffhttp.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "staffdash",
			Version: cfg.Version,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	sealer, err := app.initSealer()
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.sealer = sealer

	sessions, err := InitSessions(ctx, cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}
	app.sessions = sessions

	app.initServices()
	app.initHTTP()

	if err := app.bootstrapAdmin(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	if app.sessions.Refresher != nil {
		app.sessions.Refresher.Start()
	}

	app.logger.Info("staffdash starting",
		"port", app.cfg.Port,
		"version", app.cfg.Version,
		"store", app.cfg.StoreDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stopBackground()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down staffdash...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.stopBackground()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("staffdash stopped")
	return nil
}

// Close releases the store of an application whose Run was never called.
func (app *Application) Close() error {
	return app.db.Close()
}

func (app *Application) stopBackground() {
	app.housekeepingService.Stop()
	if app.sessions.Refresher != nil {
		app.sessions.Refresher.Stop()
	}
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := openStore(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StoreDriver, err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "store", app.cfg.StoreDriver)
	return nil
}

func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverMongo:
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case DriverPostgres:
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return postgres.NewStore(ctx, cfg.PostgresURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		return sqlite.NewStore(dsn)
	}
}

// initSealer derives the TOTP secret sealing key from STAFFDASH_MASTER_KEY.
func (app *Application) initSealer() (service.Sealer, error) {
	if app.cfg.MasterKey != "" {
		box, err := cryptox.NewSecretBox([]byte(app.cfg.MasterKey))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secret box: %w", err)
		}
		return box, nil
	}

	box, err := cryptox.NewEphemeralSecretBox()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret box: %w", err)
	}
	app.logger.Warn("STAFFDASH_MASTER_KEY not set; two-factor secrets will be unreadable after restart")
	return box, nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.activityService = &service.ActivityService{
		Store:  app.db,
		Logger: app.logger.With("component", "activity"),
		Sink:   app.cfg.ActivitySink,
	}

	app.twoFactorService = &service.TwoFactorService{
		Store:       app.db,
		Activity:    app.activityService,
		TOTP:        service.NewTOTPProvider(app.cfg.TOTPIssuer),
		Sealer:      app.sealer,
		AuditPolicy: app.cfg.auditPolicy(),
	}

	app.userService = &service.UserService{
		Store:    app.db,
		Activity: app.activityService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.twoFactorService,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.PendingSetupTTL,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := staffhttp.NewRouter(
		app.sessions.Authenticator,
		app.sessions.Keys,
		app.cfg.Version,
		app.db,
		app.logger,
	)

	router.TwoFactorService = app.twoFactorService
	router.UserService = app.userService
	router.Limits = app.cfg.RateLimits
	// Validate has already rejected malformed entries.
	router.TrustedProxies, _ = httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// bootstrapAdmin creates BOOTSTRAP_ADMIN_EMAIL as an admin when no user with
// that email exists.
func (app *Application) bootstrapAdmin(ctx context.Context) error {
	if app.cfg.BootstrapAdminEmail == "" {
		return nil
	}

	created, err := app.userService.EnsureUser(ctx, service.CreateUserInput{
		Email: app.cfg.BootstrapAdminEmail,
		Name:  "Administrator",
		Role:  domain.RoleAdmin.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		app.logger.Info("bootstrap admin created", "email", app.cfg.BootstrapAdminEmail)
	}

	if app.sessions.DevSigner != nil {
		app.logDevToken(ctx)
	}
	return nil
}

func (app *Application) logDevToken(ctx context.Context) {
	email, err := domain.NormaliseEmail(app.cfg.BootstrapAdminEmail)
	if err != nil {
		return
	}
	u, err := app.db.Users().GetUserByEmail(ctx, email)
	if err != nil {
		app.logger.Warn("failed to load bootstrap admin", "error", err)
		return
	}
	token, err := app.sessions.DevToken(u.ID, u.Email, u.Role.String(), app.cfg.AuthAudience)
	if err != nil {
		app.logger.Warn("failed to mint development token", "error", err)
		return
	}
	app.logger.Info("development bearer token for bootstrap admin", "email", u.Email, "token", token)
}
