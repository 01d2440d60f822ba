package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// startHTTPServer runs the HTTP server until a shutdown signal arrives,
// then drains in-flight requests and stops the scheduler within the
// configured grace period. Crash recovery runs once the listener is
// accepting, so a restart is serving requests before re-admitted jobs
// compete for slots.
func (app *application) startHTTPServer(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", "error", err)
			cancelServer()
		}
	}()

	go func() {
		recovered, err := app.scheduler.Recover(serverCtx)
		if err != nil {
			app.logger.Error("crash recovery failed", "error", err)
			return
		}
		if recovered > 0 {
			app.logger.Info("crash recovery finished", "recovered", recovered)
		}
	}()

	select {
	case sig := <-shutdownCh:
		app.logger.Info("shutdown signal received", "signal", sig.String())
	case <-serverCtx.Done():
		app.logger.Info("server context canceled, shutting down")
	}

	grace := time.Duration(app.config.Scheduler.ShutdownGraceSeconds) * time.Second
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), grace)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
	}
	if err := app.scheduler.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn("scheduler did not drain within grace period", "error", err)
	}

	app.cleanup()
	app.logger.Info("server shutdown completed")
	return nil
}
