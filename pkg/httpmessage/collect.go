package httpmessage

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"
)

// DefaultLimit is the default size limit of a body, and of a single line.
const DefaultLimit = 262_144

func defaultLogger() *logrus.Entry {
	return logrus.WithField("component", "httpmessage")
}

// preflight holds what a body view learns from the headers at construction.
// Errors found there are reported on the first demand, so that the limit
// can still be changed after construction.
type preflight struct {
	err       error
	length    uint64
	hasLength bool
}

func newPreflight(m Message) preflight {
	n, ok, err := contentLength(m)
	return preflight{
		err:       err,
		length:    n,
		hasLength: ok,
	}
}

func (p preflight) check(limit int) error {
	if p.err != nil {
		return p.err
	}

	if p.hasLength && p.length > uint64(limit) {
		return fmt.Errorf("%w: declared length %d exceeds %d", ErrOverflow, p.length, limit)
	}

	return nil
}

// accumulator pulls chunks from a source into a size-limited buffer.
type accumulator struct {
	src   ChunkSource
	limit int
	buf   *bytebufferpool.ByteBuffer
}

func newAccumulator(src ChunkSource, limit int) *accumulator {
	return &accumulator{
		src:   src,
		limit: limit,
		buf:   bytebufferpool.Get(),
	}
}

// drain returns nil once the source reached end of data,
// ErrNotReady when it has to be called again, or a terminal error.
// The actual byte count is checked whatever Content-Length declared.
func (a *accumulator) drain() error {
	for {
		chunk, err := a.src.Next()
		switch {
		case err == nil:
			if a.buf.Len()+len(chunk) > a.limit {
				a.release()
				return fmt.Errorf("%w: body exceeds %d bytes", ErrOverflow, a.limit)
			}
			a.buf.Write(chunk) //nolint:errcheck

		case errors.Is(err, ErrNotReady):
			return ErrNotReady

		case errors.Is(err, io.EOF):
			return nil

		default:
			a.release()
			return &SourceError{Err: err}
		}
	}
}

// bytes returns the accumulated body and releases the buffer.
func (a *accumulator) bytes() []byte {
	out := make([]byte, a.buf.Len())
	copy(out, a.buf.B)
	a.release()
	return out
}

func (a *accumulator) release() {
	if a.buf != nil {
		bytebufferpool.Put(a.buf)
		a.buf = nil
	}
}

func clampLimit(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
