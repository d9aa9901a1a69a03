package health

import (
	"net/http"
	"time"

	"github.com/guided-traffic/httpmessage/internal/server/response"
	"github.com/sirupsen/logrus"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Handler handles health and version endpoints
type Handler struct {
	logger               *logrus.Entry
	build                BuildInfo
	shutdownStateHandler func() (bool, time.Time)
}

// NewHandler creates a new health handler
func NewHandler(logger *logrus.Entry, build BuildInfo) *Handler {
	return &Handler{
		logger: logger,
		build:  build,
	}
}

// SetShutdownStateHandler sets the handler to check shutdown state
func (h *Handler) SetShutdownStateHandler(handler func() (bool, time.Time)) {
	h.shutdownStateHandler = handler
}

// Health reports 200 while serving and 503 once graceful shutdown began
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.shutdownStateHandler != nil {
		if shutdownInitiated, shutdownTime := h.shutdownStateHandler(); shutdownInitiated {
			response.WriteJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{
				"status":        "shutting_down",
				"shutdown_time": shutdownTime.Format(time.RFC3339),
				"message":       "Server is shutting down gracefully",
			})
			return
		}
	}

	response.WriteJSON(w, h.logger, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Version handles the version endpoint
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, h.logger, http.StatusOK, struct {
		Service string `json:"service"`
		BuildInfo
	}{
		Service:   "httpmsg",
		BuildInfo: h.build,
	})
}
