// Package ops exposes the operational HTTP surface: Prometheus metrics,
// liveness, and build info. The scoring pipeline itself has no HTTP API.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Server is the ops HTTP server.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds the ops router on the given listen address.
func NewServer(addr string, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"version": version.Version,
			"commit":  version.Commit,
			"date":    version.Date,
		})
	})

	return &Server{
		srv:    &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second},
		logger: logger,
	}
}

// Start serves until the listener fails. ErrServerClosed is a clean stop.
func (s *Server) Start() error {
	s.logger.Info("Ops server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
