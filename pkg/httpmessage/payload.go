package httpmessage

import (
	"context"
	"errors"
	"io"
	"runtime"
)

// DefaultChunkSize is the read size used by NewReaderSource when none is given.
const DefaultChunkSize = 8192

// ChunkSource is a demand-driven producer of body chunks.
//
// Next returns the next chunk, ErrNotReady when no chunk is available yet,
// io.EOF at end of data, or any other error when the source failed.
// Returned chunks are owned by the caller and are never modified afterwards.
type ChunkSource interface {
	Next() ([]byte, error)
}

// Waiter is implemented by sources that can block until Next is able
// to make progress. Sources that never report ErrNotReady don't need it.
type Waiter interface {
	Wait(ctx context.Context) error
}

type emptySource struct{}

func (emptySource) Next() ([]byte, error) {
	return nil, io.EOF
}

// EmptySource returns a source that is immediately at end of data.
func EmptySource() ChunkSource {
	return emptySource{}
}

// ReaderSource turns an io.Reader into a ChunkSource.
// Reads block, so it never reports ErrNotReady.
type ReaderSource struct {
	r         io.Reader
	chunkSize int
	err       error
}

// NewReaderSource allocates a ReaderSource that reads up to chunkSize bytes per chunk.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &ReaderSource{
		r:         r,
		chunkSize: chunkSize,
	}
}

// Next implements ChunkSource.
func (s *ReaderSource) Next() ([]byte, error) {
	for {
		if s.err != nil {
			return nil, s.err
		}

		buf := make([]byte, s.chunkSize)
		n, err := s.r.Read(buf)
		if err != nil {
			s.err = err
		}

		if n > 0 {
			// the error, if any, is reported on the next call
			return buf[:n], nil
		}

		// a reader is allowed to return 0, nil
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			s.err = io.EOF
		}
		return nil, s.err
	}
}

// Payload holds the body source of a message until it is claimed.
type Payload struct {
	src ChunkSource
}

// NewPayload allocates a Payload.
func NewPayload(src ChunkSource) Payload {
	return Payload{src: src}
}

// Take moves the source out of the payload.
// Every claim after the first one receives an empty source.
func (p *Payload) Take() ChunkSource {
	if p.src == nil {
		return EmptySource()
	}

	src := p.src
	p.src = nil
	return src
}

// Taken reports whether the source was already claimed.
func (p *Payload) Taken() bool {
	return p.src == nil
}

// waitReady is called by blocking drivers after a view reported ErrNotReady.
func waitReady(ctx context.Context, src ChunkSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w, ok := src.(Waiter); ok {
		return w.Wait(ctx)
	}

	runtime.Gosched()
	return nil
}
