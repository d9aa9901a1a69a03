package httpmessage

import (
	"errors"
	"fmt"
)

// Content type negotiation errors.
var (
	// ErrContentTypeParse is returned when the Content-Type header is not a valid media type
	ErrContentTypeParse = errors.New("can not parse content type")

	// ErrUnknownEncoding is returned when the charset parameter names an unknown encoding
	ErrUnknownEncoding = errors.New("unknown content encoding")

	// ErrHeaderValue is returned when a header value is not valid text
	ErrHeaderValue = errors.New("invalid header value")
)

// Payload errors.
var (
	// ErrUnknownLength is returned when Content-Length is not a non-negative integer
	ErrUnknownLength = errors.New("payload length is unknown")

	// ErrOverflow is returned when the payload reaches its size limit
	ErrOverflow = errors.New("payload reached size limit")

	// ErrBodyConsumed is returned when a finished body is demanded again
	ErrBodyConsumed = errors.New("payload already consumed")

	// ErrNotReady is reported by a ChunkSource, and by every view built on it,
	// when no data is available yet. It is never terminal.
	ErrNotReady = errors.New("payload not ready")
)

// Urlencoded form errors.
var (
	// ErrFormContentType is returned when the message is not an urlencoded form
	ErrFormContentType = errors.New("content type is not application/x-www-form-urlencoded")

	// ErrFormParse is returned when the form body can not be decoded
	ErrFormParse = errors.New("urlencoded form parse error")
)

// Readlines errors.
var (
	// ErrLineTooLong is returned when a line exceeds the line limit
	ErrLineTooLong = errors.New("line size exceeds limit")

	// ErrEncoding is returned when bytes can not be decoded with the message charset
	ErrEncoding = errors.New("invalid character sequence for charset")
)

// Cookie errors.
var (
	// ErrCookieEncoding is returned when a Cookie header is not valid UTF-8
	// or a cookie contains an invalid percent escape
	ErrCookieEncoding = errors.New("cookie is not properly encoded")

	// ErrMalformedCookie is returned when a cookie pair has no name or no '='
	ErrMalformedCookie = errors.New("malformed cookie")
)

// SourceError wraps an error reported by a ChunkSource.
type SourceError struct {
	Err error
}

// Error implements error.
func (e *SourceError) Error() string {
	return fmt.Sprintf("payload source error: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *SourceError) Unwrap() error {
	return e.Err
}
