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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	httpapi "github.com/aussiebroadwan/gatehouse/internal/gatehouse/http"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/metrics"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// sealerInfo separates the credential key from anything else derived from
// the master key.
const sealerInfo = "gatehouse/google-credentials/v1"

// Application encapsulates the gatehouse service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	metrics  *metrics.Metrics
	sealer   *cryptox.Sealer
	states   *jwtx.StateSigner
	oauth    *oauth2.Config
	outbound *http.Client

	// Services
	tokenService        *service.TokenService
	rbacService         *service.RBACService
	resolver            *service.ActorResolver
	refresher           *service.CredentialRefresher
	calendarService     *service.CalendarService
	loginService        *service.LoginService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSecrets(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initOAuth()
	app.initServices()

	if err := app.seedModules(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to seed modules: %w", err)
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatehouse starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"google_configured", app.cfg.GoogleConfigured(),
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore("file:" + app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initSecrets builds the credential sealer and the OAuth state signer.
func (app *Application) initSecrets() error {
	if app.cfg.MasterKey != "" {
		sealer, err := cryptox.NewSealer([]byte(app.cfg.MasterKey), sealerInfo)
		if err != nil {
			return fmt.Errorf("failed to initialize credential sealer: %w", err)
		}
		app.sealer = sealer
	} else {
		app.logger.Warn("GATEHOUSE_MASTER_KEY not set; Google credentials are stored in plaintext")
	}

	secret := app.cfg.StateSecret
	if secret == "" {
		generated, err := cryptox.GenerateSecret(cryptox.SecretSize)
		if err != nil {
			return fmt.Errorf("failed to generate state secret: %w", err)
		}
		secret = generated
		app.logger.Warn("GATEHOUSE_STATE_SECRET not set; using a per-process secret")
	}

	states, err := jwtx.NewStateSigner([]byte(secret), "gatehouse", jwtx.DefaultStateTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize state signer: %w", err)
	}
	app.states = states
	return nil
}

// initOAuth configures the Google client and the traced outbound transport.
func (app *Application) initOAuth() {
	app.oauth = &oauth2.Config{
		ClientID:     app.cfg.GoogleClientID,
		ClientSecret: app.cfg.GoogleClientSecret,
		RedirectURL:  app.cfg.GoogleRedirectURL,
		Scopes:       app.cfg.GoogleScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   app.cfg.GoogleAuthURL,
			TokenURL:  app.cfg.GoogleTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	app.outbound = &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   app.cfg.OutboundTimeout,
	}

	if !app.cfg.GoogleConfigured() {
		app.logger.Warn("Google client not configured; sign-in and credential refresh are disabled")
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:        app.db,
		UserTokenTTL: app.cfg.UserTokenTTL,
	}
	app.rbacService = &service.RBACService{Store: app.db, Tokens: app.tokenService}
	app.resolver = &service.ActorResolver{Store: app.db, Metrics: app.metrics}

	app.refresher = &service.CredentialRefresher{
		Vault:      &service.CredentialVault{Store: app.db, Sealer: app.sealer},
		OAuth:      app.oauth,
		HTTPClient: app.outbound,
		Timeout:    app.cfg.OutboundTimeout,
		Metrics:    app.metrics,
	}
	app.calendarService = &service.CalendarService{
		Credentials: app.refresher,
		BaseURL:     app.cfg.GoogleCalendarBaseURL,
		Client:      app.outbound,
		Timeout:     app.cfg.OutboundTimeout,
		Metrics:     app.metrics,
	}
	app.loginService = &service.LoginService{
		Store:       app.db,
		OAuth:       app.oauth,
		States:      app.states,
		Sealer:      app.sealer,
		UserInfoURL: app.cfg.GoogleUserInfoURL,
		FrontendURL: app.cfg.FrontendURL,
		HTTPClient:  app.outbound,
		Timeout:     app.cfg.OutboundTimeout,
		Tokens:      app.tokenService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.metrics, app.logger)

	router.Resolver = app.resolver
	router.RBACService = app.rbacService
	router.CalendarService = app.calendarService
	router.LoginService = app.loginService
	router.CORSOrigins = app.cfg.CORSAllowedOrigins
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
