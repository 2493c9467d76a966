package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pmiengine/internal"
	"pmiengine/internal/config"
	"pmiengine/internal/metrics"
)

// Server is the HTTP front: chi owns the process-level routes and hands /v1 to
// the JSON handlers
type Server struct {
	router  *chi.Mux
	config  config.ServerConfig
	metrics *metrics.Metrics
	logger  *internal.Logger
}

// NewServer creates a server; v1 serves everything under /v1
func NewServer(cfg config.ServerConfig, v1 http.Handler, m *metrics.Metrics, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		metrics: m,
		logger:  logger.With("Server"),
	}
	s.setupMiddleware()
	s.setupRoutes(v1)
	return s
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes(v1 http.Handler) {
	s.router.Get("/healthz", s.handleHealth)
	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
	s.router.Mount("/v1", v1)
}

// ServeHTTP lets the server be used directly with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Start listens on the configured port until ctx is cancelled, then drains
// in-flight requests
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
