// Package web serves the transactions HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/budgetanalyzer/transactions/internal/config"
	"github.com/budgetanalyzer/transactions/internal/importer"
	"github.com/budgetanalyzer/transactions/internal/transactions"
)

// Deps are the services the API fronts.
type Deps struct {
	Imports      *importer.Service
	Transactions *transactions.Service
	Formats      *config.Formats
}

// Server is the HTTP API server.
type Server struct {
	deps   Deps
	cfg    config.ServerConfig
	auth   config.AuthConfig
	router *chi.Mux
}

// NewServer creates a Server with routes and middleware installed.
func NewServer(cfg config.ServerConfig, auth config.AuthConfig, deps Deps) *Server {
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		auth:   auth,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, fmt.Errorf("%w: no route for %s", errNotFound, r.URL.Path))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, fmt.Errorf("%w: %s not allowed on %s", errMethodNotAllowed, r.Method, r.URL.Path))
	})

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/formats", s.handleListFormats)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/import", s.handleImport)
			r.Get("/", s.handleList)
			r.Get("/export", s.handleExport)
			r.Get("/summary", s.handleSummary)
			r.Post("/bulk-delete", s.handleBulkDelete)

			r.Get("/{id}", s.handleGet)
			r.Patch("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})

		r.Post("/admin/transactions/search", s.handleAdminSearch)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}
