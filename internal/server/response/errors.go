package response

import (
	"errors"
	"net/http"

	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
	"github.com/sirupsen/logrus"
)

// Error codes reported in the JSON error document
const (
	CodePayloadTooLarge      = "PayloadTooLarge"
	CodeLineTooLong          = "LineTooLong"
	CodeLengthRequired       = "LengthRequired"
	CodeUnsupportedMediaType = "UnsupportedMediaType"
	CodeMalformedBody        = "MalformedBody"
	CodeMalformedHeader      = "MalformedHeader"
	CodeMalformedCookie      = "MalformedCookie"
	CodePayloadError         = "PayloadError"
	CodeInternalError        = "InternalError"
)

// ErrorDocument is the JSON body written for a failed request
type ErrorDocument struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Classify maps a consumption error to its HTTP status and error code
func Classify(err error) (int, string) {
	var srcErr *httpmessage.SourceError

	switch {
	case errors.Is(err, httpmessage.ErrOverflow):
		return http.StatusRequestEntityTooLarge, CodePayloadTooLarge
	case errors.Is(err, httpmessage.ErrLineTooLong):
		return http.StatusRequestEntityTooLarge, CodeLineTooLong
	case errors.Is(err, httpmessage.ErrUnknownLength):
		return http.StatusLengthRequired, CodeLengthRequired
	case errors.Is(err, httpmessage.ErrFormContentType),
		errors.Is(err, httpmessage.ErrContentTypeParse),
		errors.Is(err, httpmessage.ErrUnknownEncoding):
		return http.StatusUnsupportedMediaType, CodeUnsupportedMediaType
	case errors.Is(err, httpmessage.ErrFormParse),
		errors.Is(err, httpmessage.ErrEncoding):
		return http.StatusBadRequest, CodeMalformedBody
	case errors.Is(err, httpmessage.ErrHeaderValue):
		return http.StatusBadRequest, CodeMalformedHeader
	case errors.Is(err, httpmessage.ErrCookieEncoding),
		errors.Is(err, httpmessage.ErrMalformedCookie):
		return http.StatusBadRequest, CodeMalformedCookie
	case errors.As(err, &srcErr):
		return http.StatusBadRequest, CodePayloadError
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// ErrorWriter writes JSON error responses
type ErrorWriter struct {
	logger *logrus.Entry
}

// NewErrorWriter creates a new error response writer
func NewErrorWriter(logger *logrus.Entry) *ErrorWriter {
	return &ErrorWriter{
		logger: logger,
	}
}

// WriteError classifies err and writes the matching error document.
// It returns the error code so callers can record it.
func (e *ErrorWriter) WriteError(w http.ResponseWriter, r *http.Request, err error) string {
	statusCode, code := Classify(err)

	logEntry := e.logger.WithError(err).WithFields(logrus.Fields{
		"path":        r.URL.Path,
		"error_code":  code,
		"status_code": statusCode,
	})
	if statusCode >= 500 {
		logEntry.Error("Request failed")
	} else {
		logEntry.Warn("Request failed with client error")
	}

	e.write(w, r, statusCode, code, err.Error())
	return code
}

// WriteGenericError writes an error document with a custom code and message
func (e *ErrorWriter) WriteGenericError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	e.write(w, r, statusCode, code, message)
}

func (e *ErrorWriter) write(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	doc := ErrorDocument{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if doc.RequestID == "" {
		doc.RequestID = r.Header.Get(RequestIDHeader)
	}

	WriteJSON(w, e.logger, statusCode, doc)
}
