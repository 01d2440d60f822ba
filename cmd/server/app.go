package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pixfetch/pixfetch/internal/broadcast"
	"github.com/pixfetch/pixfetch/internal/config"
	"github.com/pixfetch/pixfetch/internal/platform/postgres"
	"github.com/pixfetch/pixfetch/internal/scheduler"
	"github.com/pixfetch/pixfetch/internal/service/auth"
	"github.com/pixfetch/pixfetch/internal/store"
	filestore "github.com/pixfetch/pixfetch/internal/store/file"
	"github.com/pixfetch/pixfetch/internal/worker/scrape"
)

// application holds the assembled dependencies of the server process.
type application struct {
	config      *config.Config
	logger      *slog.Logger
	history     store.HistoryStore
	caster      *broadcast.Broadcaster
	scheduler   *scheduler.Scheduler
	authService auth.Service

	closers []func() error
}

// newApplication wires the history store, broadcaster, worker factory
// and scheduler from configuration.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	history, err := app.setupHistoryStore()
	if err != nil {
		return nil, err
	}
	app.history = history

	if err := os.MkdirAll(cfg.Storage.DownloadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	app.caster = broadcast.New(logger)

	factory := scrape.NewFactory(scrape.Config{
		DownloadsDir: cfg.Storage.DownloadsDir,
		HTTPTimeout:  time.Duration(cfg.Worker.HTTPTimeoutSeconds) * time.Second,
		MaxImages:    cfg.Worker.MaxImages,
		UserAgent:    cfg.Worker.UserAgent,
	}, logger)

	app.scheduler = scheduler.New(scheduler.Config{
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
	}, history, app.caster, factory, logger)

	if cfg.Auth.Enabled {
		app.authService = auth.NewJWTService(cfg.Auth, logger)
	}

	return app, nil
}

// setupHistoryStore creates the configured history backend.
func (app *application) setupHistoryStore() (store.HistoryStore, error) {
	switch app.config.History.Driver {
	case "postgres":
		pg, err := postgres.Open(app.config.History.DatabaseURL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		if err := pg.Migrate(); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("failed to run history migrations: %w", err)
		}
		app.closers = append(app.closers, pg.Close)
		return pg, nil

	case "file":
		return filestore.New(app.config.History.FilePath, app.logger), nil

	default:
		return nil, fmt.Errorf("unknown history driver: %q", app.config.History.Driver)
	}
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			app.logger.Error("cleanup failed", "error", err)
		}
	}
}
