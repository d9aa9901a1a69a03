// Package httpmessagetest provides utilities for testing code that consumes message bodies.
package httpmessagetest

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
)

// Source is a ChunkSource that replays a fixed list of chunks.
type Source struct {
	chunks [][]byte
	stall  bool
	paused bool
	err    error
	pulls  int
	waits  int
}

// NewSource allocates a Source.
func NewSource(chunks ...[]byte) *Source {
	return &Source{chunks: chunks}
}

// Stall makes the source report not-ready before every chunk and before the end.
func (s *Source) Stall() *Source {
	s.stall = true
	return s
}

// FailWith makes the source return err instead of end of data.
func (s *Source) FailWith(err error) *Source {
	s.err = err
	return s
}

// Next implements httpmessage.ChunkSource.
func (s *Source) Next() ([]byte, error) {
	s.pulls++

	if s.stall && !s.paused {
		s.paused = true
		return nil, httpmessage.ErrNotReady
	}
	s.paused = false

	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}

	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

// Wait implements httpmessage.Waiter.
func (s *Source) Wait(ctx context.Context) error {
	s.waits++
	return ctx.Err()
}

// Pulls returns how many times Next was called.
func (s *Source) Pulls() int {
	return s.pulls
}

// Waits returns how many times Wait was called.
func (s *Source) Waits() int {
	return s.waits
}

// Remaining returns how many chunks were not delivered yet.
func (s *Source) Remaining() int {
	return len(s.chunks)
}

// Split cuts p into chunks of at most size bytes.
func Split(p []byte, size int) [][]byte {
	if size <= 0 {
		size = len(p)
	}

	var out [][]byte
	for len(p) > 0 {
		n := min(size, len(p))
		out = append(out, p[:n:n])
		p = p[n:]
	}
	return out
}

// RequestBuilder builds test requests.
type RequestBuilder struct {
	method string
	target string
	header http.Header
	source *Source
}

// NewRequest returns a builder for a GET / request without body.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method: http.MethodGet,
		target: "/",
		header: make(http.Header),
	}
}

// WithHeader returns a builder with one header set.
func WithHeader(key, value string) *RequestBuilder {
	return NewRequest().Header(key, value)
}

// Method sets the request method.
func (b *RequestBuilder) Method(method string) *RequestBuilder {
	b.method = method
	return b
}

// Target sets the request target.
func (b *RequestBuilder) Target(target string) *RequestBuilder {
	b.target = target
	return b
}

// Header adds a header value. The value is stored as-is, even if it's not valid text.
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.header.Add(key, value)
	return b
}

// Payload sets the body, delivered as one chunk.
func (b *RequestBuilder) Payload(p []byte) *RequestBuilder {
	b.source = NewSource(p)
	return b
}

// Chunks sets the body, delivered as the given chunks.
func (b *RequestBuilder) Chunks(chunks ...[]byte) *RequestBuilder {
	b.source = NewSource(chunks...)
	return b
}

// Source sets the body source.
func (b *RequestBuilder) Source(s *Source) *RequestBuilder {
	b.source = s
	return b
}

// Finish builds the request.
func (b *RequestBuilder) Finish() *httpmessage.Request {
	u, err := url.Parse(b.target)
	if err != nil {
		u = &url.URL{Path: b.target}
	}

	var src httpmessage.ChunkSource
	if b.source != nil {
		src = b.source
	}

	return httpmessage.NewRequest(b.method, u, b.header, src)
}
