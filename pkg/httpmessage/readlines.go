package httpmessage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"
)

// Readlines decodes a message body into lines of text.
//
// Every line but possibly the last one keeps its trailing '\n', so
// concatenating the lines gives back the body. A line longer than the
// line limit (DefaultLimit unless changed with Limit) is an error, and
// at most that many bytes are buffered. The first error is returned by
// every later demand.
type Readlines struct {
	src     ChunkSource
	buf     *bytebufferpool.ByteBuffer
	head    int
	limit   int
	checked bool
	charset Charset
	started bool
	eof     bool
	err     error
	lines   int
	logger  *logrus.Entry
}

// Lines claims the message payload and returns a line decoder.
// If the charset of the message can't be resolved, the decoder is
// poisoned and returns that error on its first demand.
func Lines(m Message) *Readlines {
	r := &Readlines{
		src:     m.TakePayload(),
		limit:   DefaultLimit,
		checked: true,
		charset: UTF8,
		logger:  defaultLogger(),
	}

	cs, err := Encoding(m)
	if err != nil {
		r.err = err
		return r
	}
	r.charset = cs
	r.buf = bytebufferpool.Get()

	return r
}

// Limit changes the maximum line size. It has no effect once decoding began.
func (r *Readlines) Limit(n int) *Readlines {
	if !r.started {
		r.limit = clampLimit(n)
	}
	return r
}

// Logger sets the logger used to report the outcome.
func (r *Readlines) Logger(l *logrus.Entry) *Readlines {
	r.logger = l
	return r
}

// Charset returns the charset lines are decoded with.
func (r *Readlines) Charset() Charset {
	return r.charset
}

// Poll returns the next line, ErrNotReady when it has to be called
// again, io.EOF after the last line, or a terminal error.
func (r *Readlines) Poll() (string, error) {
	if r.err != nil {
		return "", r.err
	}

	if r.eof {
		return "", io.EOF
	}

	r.started = true

	// a line may be left in the buffer by the previous chunk
	if !r.checked {
		if i := bytes.IndexByte(r.pending(), '\n'); i >= 0 {
			return r.emit(i + 1)
		}
		r.checked = true
	}

	chunk, err := r.src.Next()
	switch {
	case err == nil:
		r.compact()
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			r.buf.Write(chunk) //nolint:errcheck
			if r.buf.Len() > r.limit {
				return "", r.fail(fmt.Errorf("%w: more than %d bytes without a newline", ErrLineTooLong, r.limit))
			}
			return "", ErrNotReady
		}

		// the line is what's left in the buffer plus the head of the chunk
		if r.buf.Len()+i+1 > r.limit {
			return "", r.fail(fmt.Errorf("%w: line of %d bytes, limit is %d", ErrLineTooLong, r.buf.Len()+i+1, r.limit))
		}
		r.buf.Write(chunk) //nolint:errcheck
		r.checked = false
		return r.emit(r.buf.Len() - len(chunk) + i + 1)

	case errors.Is(err, ErrNotReady):
		return "", ErrNotReady

	case errors.Is(err, io.EOF):
		r.eof = true
		rest := r.pending()
		if len(rest) == 0 {
			r.finish()
			return "", io.EOF
		}

		if len(rest) > r.limit {
			return "", r.fail(fmt.Errorf("%w: last line of %d bytes, limit is %d", ErrLineTooLong, len(rest), r.limit))
		}

		line, err := r.charset.Decode(rest)
		if err != nil {
			return "", r.fail(err)
		}
		r.lines++
		r.finish()
		return line, nil

	default:
		return "", r.fail(&SourceError{Err: err})
	}
}

// Next drives Poll until a line is available, waiting on the source
// when it is not ready. It returns io.EOF after the last line.
func (r *Readlines) Next(ctx context.Context) (string, error) {
	for {
		line, err := r.Poll()
		if err != ErrNotReady {
			return line, err
		}

		if err := waitReady(ctx, r.src); err != nil {
			return "", err
		}
	}
}

// All returns an iterator over the remaining lines. Iteration stops
// after the first error, which is yielded with an empty line.
func (r *Readlines) All(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := r.Next(ctx)
			if err == io.EOF {
				return
			}

			if !yield(line, err) || err != nil {
				return
			}
		}
	}
}

// emit decodes the next n pending bytes and moves the head past them.
func (r *Readlines) emit(n int) (string, error) {
	if n > r.limit {
		return "", r.fail(fmt.Errorf("%w: line of %d bytes, limit is %d", ErrLineTooLong, n, r.limit))
	}

	line, err := r.charset.Decode(r.buf.B[r.head : r.head+n])
	if err != nil {
		return "", r.fail(err)
	}

	r.head += n
	if r.head == len(r.buf.B) {
		r.buf.Reset()
		r.head = 0
	}
	r.lines++
	return line, nil
}

// pending returns the buffered bytes not yet emitted.
func (r *Readlines) pending() []byte {
	return r.buf.B[r.head:]
}

// compact moves the pending bytes to the front of the buffer.
// It runs at most once per chunk, so each byte is moved a bounded
// number of times.
func (r *Readlines) compact() {
	if r.head == 0 {
		return
	}
	r.buf.B = r.buf.B[:copy(r.buf.B, r.buf.B[r.head:])]
	r.head = 0
}

func (r *Readlines) fail(err error) error {
	r.err = err
	r.release()
	r.logger.WithError(err).WithFields(logrus.Fields{
		"limit": r.limit,
		"lines": r.lines,
	}).Debug("Line decoding failed")
	return err
}

func (r *Readlines) finish() {
	r.release()
	r.logger.WithField("lines", r.lines).Debug("Line decoding finished")
}

func (r *Readlines) release() {
	if r.buf != nil {
		bytebufferpool.Put(r.buf)
		r.buf = nil
	}
}
