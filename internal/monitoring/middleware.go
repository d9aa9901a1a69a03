package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// unmatchedEndpoint labels requests no route matched, so unknown paths
// can't grow the label set.
const unmatchedEndpoint = "unmatched"

// statusRecorder captures the status code and the number of body bytes written
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.written += int64(n)
	return n, err
}

// Flush lets handlers stream through the recorder.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMiddleware counts requests per route template and records their
// duration and response size. It is meant for router.Use on a gorilla/mux
// router, where the matched route is known.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		ActiveConnections.Inc()
		defer ActiveConnections.Dec()

		next.ServeHTTP(rec, r)

		endpoint := endpointOf(r)
		RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		ResponseBytes.WithLabelValues(endpoint).Add(float64(rec.written))
	})
}

func endpointOf(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unmatchedEndpoint
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return unmatchedEndpoint
	}
	return template
}
