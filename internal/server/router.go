package server

import (
	"github.com/gorilla/mux"
	"github.com/guided-traffic/httpmessage/internal/monitoring"
	"github.com/guided-traffic/httpmessage/internal/server/handlers/body"
	"github.com/guided-traffic/httpmessage/internal/server/handlers/health"
	"github.com/guided-traffic/httpmessage/internal/server/middleware"
)

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *mux.Router) {
	if s.config.Monitoring.Enabled {
		router.Use(monitoring.HTTPMiddleware)
	}

	// Order matters: tracking assigns the request id the logger reports
	tracker := middleware.NewRequestTracker(s.logger)
	tracker.SetHandlers(s.requestStartHandler, s.requestEndHandler)
	router.Use(tracker.Middleware)
	router.Use(middleware.NewLogger(s.logger, s.config.LogHealthRequests).Middleware)

	healthHandler := health.NewHandler(s.logger, s.build)
	healthHandler.SetShutdownStateHandler(s.shutdownStateHandler)

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/version", healthHandler.Version).Methods("GET")

	bodyHandler := body.NewHandler(s.logger, s.config.Limits)

	router.HandleFunc("/echo", bodyHandler.Echo).Methods("POST", "PUT")
	router.HandleFunc("/form", bodyHandler.Form).Methods("POST")
	router.HandleFunc("/lines", bodyHandler.Lines).Methods("POST", "PUT")
	router.HandleFunc("/cookies", bodyHandler.Cookies).Methods("GET")
	router.HandleFunc("/negotiate", bodyHandler.Negotiate)
}
