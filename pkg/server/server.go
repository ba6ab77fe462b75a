// Package server exposes the citation engine over HTTP for authoring tools.
// It is a thin transport: every decision is delegated to the engine packages.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/coolbeans/lexcanon/pkg/config"
	"github.com/coolbeans/lexcanon/pkg/harness"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// Server serves the authoring API.
type Server struct {
	cfg      config.ServerConfig
	registry *types.JurisdictionRegistry
	harness  *harness.Harness
	metrics  *harness.Metrics
	logger   zerolog.Logger
}

// New creates a Server. A nil registry means the default registry; a nil
// metrics disables the /metrics endpoint.
func New(cfg config.ServerConfig, registry *types.JurisdictionRegistry, checker *harness.Harness, metrics *harness.Metrics, logger zerolog.Logger) *Server {
	if registry == nil {
		registry = types.DefaultJurisdictionRegistry()
	}
	if checker == nil {
		checker = harness.New(harness.Options{Metrics: metrics})
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		harness:  checker,
		metrics:  metrics,
		logger:   logger,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if s.cfg.WriteTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.WriteTimeout))
	}

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		if s.cfg.MaxBodyBytes > 0 {
			r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
		}
		r.Post("/sources/identify", s.handleIdentify)
		r.Post("/entries/validate", s.handleValidate)
		r.Post("/conflicts/resolve", s.handleResolve)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("server listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			logger.Info().
				Str("request_id", requestID(r)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Int("bytes", wrapped.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
