package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pixfetch/pixfetch/internal/api"
	apiMiddleware "github.com/pixfetch/pixfetch/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	jobHandler := api.NewJobHandler(app.scheduler, app.logger)
	streamHandler := api.NewStreamHandler(app.scheduler, app.logger)
	filesHandler := api.NewFilesHandler(app.config.Storage.DownloadsDir, app.logger)

	jobRoutes := func(r chi.Router) {
		r.Post("/scrape", jobHandler.Submit)
		r.Get("/jobs", jobHandler.List)
		r.Get("/jobs/{jobID}", jobHandler.Get)
		r.Post("/abort/{jobID}", jobHandler.Abort)
		r.Delete("/jobs/{jobID}", jobHandler.Delete)

		r.Get("/progress/{jobID}", streamHandler.ServeSSE)
		r.Get("/progress/{jobID}/ws", streamHandler.ServeWebSocket)

		r.Get("/history", jobHandler.History)
		r.Delete("/history", jobHandler.ClearHistory)

		r.Get("/files/{folder}", filesHandler.List)
		r.Get("/zip/{folder}", filesHandler.Zip)
	}

	r.Route("/api", func(r chi.Router) {
		if app.authService != nil {
			// Login stays public; everything else requires a session.
			r.Post("/auth/login", api.NewAuthHandler(app.authService).Login)
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.NewAuthMiddleware(app.authService).Authenticate)
				jobRoutes(r)
			})
			return
		}
		jobRoutes(r)
	})

	// Serve downloaded images directly.
	fileServer := http.StripPrefix("/downloads/",
		http.FileServer(http.Dir(app.config.Storage.DownloadsDir)))
	r.Get("/downloads/*", fileServer.ServeHTTP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
