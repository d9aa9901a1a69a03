package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	handler := NewHandler(logrus.NewEntry(logrus.New()), BuildInfo{Version: "dev"})

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealth_ShuttingDown(t *testing.T) {
	handler := NewHandler(logrus.NewEntry(logrus.New()), BuildInfo{})
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	handler.SetShutdownStateHandler(func() (bool, time.Time) { return true, at })

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "shutting_down", body["status"])
	assert.Equal(t, "2024-01-02T03:04:05Z", body["shutdown_time"])
}

func TestVersion(t *testing.T) {
	handler := NewHandler(logrus.NewEntry(logrus.New()), BuildInfo{Version: "1.2.3", Commit: "abc"})

	rec := httptest.NewRecorder()
	handler.Version(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "httpmsg", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "abc", body["commit"])
}
