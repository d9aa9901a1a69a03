package httpmessage

import (
	"net/http"
	"net/url"
	"strings"
)

// Message is implemented by every message whose body can be consumed.
type Message interface {
	// Header returns the message headers. They must not be modified
	// while a body view is in use.
	Header() http.Header

	// TakePayload claims the body source. Only the first call gets the
	// real source; later calls get an empty one.
	TakePayload() ChunkSource

	// Extensions returns the per-message extension store.
	Extensions() *Extensions
}

// Request is a HTTP request whose headers are already parsed.
type Request struct {
	Method string
	URL    *url.URL

	header     http.Header
	payload    Payload
	extensions Extensions
}

// NewRequest allocates a Request.
func NewRequest(method string, u *url.URL, header http.Header, src ChunkSource) *Request {
	if header == nil {
		header = make(http.Header)
	}

	return &Request{
		Method:  method,
		URL:     u,
		header:  header,
		payload: NewPayload(src),
	}
}

// FromHTTPRequest wraps a net/http request. The body is read in chunks of chunkSize bytes.
func FromHTTPRequest(r *http.Request, chunkSize int) *Request {
	header := restoreTransferEncoding(r.Header, r.TransferEncoding)

	var src ChunkSource
	if r.Body != nil && r.Body != http.NoBody {
		src = NewReaderSource(r.Body, chunkSize)
	}

	return NewRequest(r.Method, r.URL, header, src)
}

// Header implements Message.
func (r *Request) Header() http.Header {
	return r.header
}

// TakePayload implements Message.
func (r *Request) TakePayload() ChunkSource {
	return r.payload.Take()
}

// Extensions implements Message.
func (r *Request) Extensions() *Extensions {
	return &r.extensions
}

// Response is a HTTP response whose headers are already parsed.
type Response struct {
	StatusCode int

	header     http.Header
	payload    Payload
	extensions Extensions
}

// NewResponse allocates a Response.
func NewResponse(statusCode int, header http.Header, src ChunkSource) *Response {
	if header == nil {
		header = make(http.Header)
	}

	return &Response{
		StatusCode: statusCode,
		header:     header,
		payload:    NewPayload(src),
	}
}

// FromHTTPResponse wraps a net/http response. The body is read in chunks of chunkSize bytes.
func FromHTTPResponse(r *http.Response, chunkSize int) *Response {
	header := restoreTransferEncoding(r.Header, r.TransferEncoding)

	var src ChunkSource
	if r.Body != nil && r.Body != http.NoBody {
		src = NewReaderSource(r.Body, chunkSize)
	}

	return NewResponse(r.StatusCode, header, src)
}

// Header implements Message.
func (r *Response) Header() http.Header {
	return r.header
}

// TakePayload implements Message.
func (r *Response) TakePayload() ChunkSource {
	return r.payload.Take()
}

// Extensions implements Message.
func (r *Response) Extensions() *Extensions {
	return &r.extensions
}

// net/http moves Transfer-Encoding out of the header map.
func restoreTransferEncoding(h http.Header, te []string) http.Header {
	if h == nil {
		h = make(http.Header)
	}

	if len(te) == 0 || h.Get("Transfer-Encoding") != "" {
		return h
	}

	h = h.Clone()
	h.Set("Transfer-Encoding", strings.Join(te, ", "))
	return h
}
