package response

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-Id"

// WriteJSON writes v as a JSON document with the given status code
func WriteJSON(w http.ResponseWriter, logger *logrus.Entry, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("Failed to write JSON response")
	}
}
