package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/guided-traffic/httpmessage/internal/server/response"
	"github.com/sirupsen/logrus"
)

type requestIDKey struct{}

// RequestID returns the id assigned to the request by RequestTracker
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestTracker assigns request ids and tracks active requests for graceful shutdown
type RequestTracker struct {
	logger              *logrus.Entry
	requestStartHandler func()
	requestEndHandler   func()
}

// NewRequestTracker creates a new request tracker middleware
func NewRequestTracker(logger *logrus.Entry) *RequestTracker {
	return &RequestTracker{
		logger: logger,
	}
}

// SetHandlers sets the start and end handlers for request tracking
func (rt *RequestTracker) SetHandlers(onStart, onEnd func()) {
	rt.requestStartHandler = onStart
	rt.requestEndHandler = onEnd
}

// Middleware returns the HTTP middleware function. A client supplied
// X-Request-Id is kept if it is a valid UUID, otherwise a new one is generated.
func (rt *RequestTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.requestStartHandler != nil {
			rt.requestStartHandler()
		}
		defer func() {
			if rt.requestEndHandler != nil {
				rt.requestEndHandler()
			}
		}()

		id := r.Header.Get(response.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			if id != "" {
				rt.logger.WithField("request_id", id).Debug("Replacing invalid request id")
			}
			id = uuid.NewString()
		}

		w.Header().Set(response.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}
