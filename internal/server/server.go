package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/guided-traffic/httpmessage/internal/config"
	"github.com/guided-traffic/httpmessage/internal/server/handlers/health"
	"github.com/sirupsen/logrus"
)

// Server is the body consumption demo server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	build      health.BuildInfo
	logger     *logrus.Entry

	activeRequests   atomic.Int64
	shutdownMu       sync.RWMutex
	shutdownStarted  bool
	shutdownInitTime time.Time
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, build health.BuildInfo) *Server {
	server := &Server{
		config: cfg,
		build:  build,
		logger: logrus.WithField("component", "server"),
	}

	router := mux.NewRouter()
	server.setupRoutes(router)

	server.httpServer = &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves requests until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	serverErrChan := make(chan error, 1)
	go func() {
		s.logger.WithField("address", s.config.BindAddress).Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	s.shutdownMu.Lock()
	s.shutdownStarted = true
	s.shutdownInitTime = time.Now()
	s.shutdownMu.Unlock()

	timeout := time.Duration(s.config.ShutdownTimeout) * time.Second
	s.logger.WithFields(logrus.Fields{
		"active_requests": s.activeRequests.Load(),
		"timeout":         timeout,
	}).Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).WithField("active_requests", s.activeRequests.Load()).Error("Failed to gracefully shutdown server")
		return err
	}

	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) shutdownStateHandler() (bool, time.Time) {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.shutdownStarted, s.shutdownInitTime
}

func (s *Server) requestStartHandler() {
	s.activeRequests.Add(1)
}

func (s *Server) requestEndHandler() {
	s.activeRequests.Add(-1)
}
