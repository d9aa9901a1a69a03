package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/httpmessage/internal/server/handlers/health"
)

// DefaultMetricsPath is used when Config.MetricsPath is empty
const DefaultMetricsPath = "/metrics"

// Server exposes metrics, health and build information on a separate port
type Server struct {
	httpServer *http.Server
	logger     *logrus.Entry

	mu           sync.RWMutex
	draining     bool
	drainStarted time.Time
}

// Config holds monitoring server configuration
type Config struct {
	BindAddress string
	MetricsPath string
	Build       health.BuildInfo
}

// NewServer creates a monitoring server and publishes the build information
// as httpmsg_server_info.
func NewServer(cfg *Config) *Server {
	logger := logrus.WithField("component", "monitoring-server")

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = DefaultMetricsPath
	}

	SetServerInfo(cfg.Build.Version, cfg.Build.Commit, cfg.Build.BuildTime)

	s := &Server{logger: logger}

	healthHandler := health.NewHandler(logger, cfg.Build)
	healthHandler.SetShutdownStateHandler(s.drainState)

	router := mux.NewRouter()
	router.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry: registry,
		ErrorLog: logger,
	})).Methods(http.MethodGet)
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/version", healthHandler.Version).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the monitoring HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled. /health reports 503 while the
// server drains.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("address", s.httpServer.Addr).Info("Starting monitoring server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Monitoring server error")
		}
	}()

	<-ctx.Done()
	s.startDraining()

	s.logger.Info("Shutting down monitoring server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("monitoring server shutdown failed: %w", err)
	}

	s.logger.Info("Monitoring server stopped")
	return nil
}

func (s *Server) startDraining() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draining {
		s.draining = true
		s.drainStarted = time.Now()
	}
}

func (s *Server) drainState() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draining, s.drainStarted
}
