// Package server exposes the analysis service over HTTP with
// graceful shutdown. TLS is left to the fronting proxy.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veridoc/internal/config"
	"veridoc/internal/health"
	"veridoc/internal/logging"
	"veridoc/internal/server/middleware"
	"veridoc/internal/service"
)

// Server is the veridoc HTTP API server.
type Server struct {
	httpServer      *http.Server
	log             *logging.Logger
	shutdownTimeout time.Duration
}

// New creates an HTTP server with routes and middleware configured.
func New(cfg config.ServerConfig, svc *service.Service, checker *health.Checker, log *logging.Logger) *Server {
	h := &handlers{
		svc:           svc,
		log:           log,
		maxUploadSize: cfg.MaxUploadMB * 1024 * 1024,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(log.Logger))
	router.Use(middleware.Metrics())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Post("/analyze/batch", h.analyzeBatch)
		r.Get("/reports", h.listReports)
		r.Get("/reports/{id}", h.getReport)
	})

	router.Method(http.MethodGet, "/healthz", checker.Handler())
	router.Method(http.MethodGet, "/healthz/live", checker.LivenessHandler())
	router.Method(http.MethodGet, "/healthz/ready", checker.ReadinessHandler())
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}

	return &Server{
		httpServer:      srv,
		log:             log,
		shutdownTimeout: time.Duration(cfg.ShutdownTimeoutSec) * time.Second,
	}
}

// Run starts the server and blocks until SIGINT/SIGTERM or a fatal
// listener error, then shuts down gracefully.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("http server started", "addr", s.httpServer.Addr)
		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.log.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	s.log.Info("http server stopped")
	return nil
}

// Handler exposes the configured router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
