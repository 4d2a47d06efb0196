package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/wattlehq/partnerdesk/internal/dashboard/http"
	"github.com/wattlehq/partnerdesk/internal/dashboard/service"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store/drivers/jsonfile"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store/drivers/sqlite"
	"github.com/wattlehq/partnerdesk/internal/importer"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
	"github.com/wattlehq/partnerdesk/pkg/jwtx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the dashboard with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.Signer

	authService         *service.AuthService
	mfaService          *service.MFAService
	userService         *service.UserService
	registryService     *service.RegistryService
	housekeepingService *service.HousekeepingService

	importer *importer.Importer // nil when no import dir is configured

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "partnerdesk",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initStore(); err != nil {
		return nil, err
	}

	secret, err := loadOrGenerateSessionSecret(cfg.SessionSecretFile)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	signer, err := jwtx.NewSigner(secret, cfg.Issuer)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	app.initServices()

	if err := app.initImporter(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := service.BootstrapAdmin(ctx, app.db,
		app.cfg.BootstrapAdminUsername, app.cfg.BootstrapAdminEmail); err != nil {
		return fmt.Errorf("bootstrap admin failed: %w", err)
	}

	app.housekeepingService.Start()

	if app.importer != nil {
		if err := app.importer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start importer: %w", err)
		}
		app.logger.Info("spreadsheet importer watching", "dir", app.cfg.ImportDir)
	}

	app.logger.Info("dashboard starting",
		"port", app.cfg.Port,
		"backend", app.cfg.StorageBackend,
		"version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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
	app.logger.Info("shutting down dashboard...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.importer != nil {
		app.importer.Stop()
	}
	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("dashboard stopped")
	return nil
}

// initStore opens the configured storage backend and applies migrations.
// The backend choice is made exactly once, here.
func (app *Application) initStore() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.StorageBackend {
	case BackendSQLite:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	case BackendJSONFile:
		db, err = jsonfile.NewStore(app.cfg.DataFile)
	default:
		return fmt.Errorf("unknown storage backend %q", app.cfg.StorageBackend)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StorageBackend, err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app.logger.Info("store ready", "backend", app.cfg.StorageBackend)
	return nil
}

func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:  app.db,
		Signer: app.signer,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Signer: app.signer,
		Issuer: app.cfg.Issuer,
	}
	app.userService = &service.UserService{Store: app.db}
	app.registryService = &service.RegistryService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initImporter() error {
	if app.cfg.ImportDir == "" {
		app.logger.Info("no import directory configured, importer disabled")
		return nil
	}
	if err := os.MkdirAll(app.cfg.ImportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create import dir: %w", err)
	}

	imp, err := importer.New(app.db, app.logger, importer.Config{
		Dir:          app.cfg.ImportDir,
		FileTimeout:  app.cfg.ImportFileTimeout,
		PollInterval: app.cfg.ImportPollInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize importer: %w", err)
	}
	app.importer = imp
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.UserService = app.userService
	router.RegistryService = app.registryService
	router.Importer = app.importer
	router.SecureCookies = app.cfg.Env != "dev"
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
