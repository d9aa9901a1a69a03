package httpmessage

import (
	"context"

	"github.com/sirupsen/logrus"
)

type bodyState int

const (
	bodyStateInit bodyState = iota
	bodyStateDraining
	bodyStateDone
	bodyStateFailed
)

// MessageBody collects a complete message body into memory.
//
// By default at most DefaultLimit bytes are read, then ErrOverflow is
// returned. Use Limit to change the upper bound before the first demand.
type MessageBody struct {
	src    ChunkSource
	limit  int
	pre    preflight
	state  bodyState
	acc    *accumulator
	err    error
	logger *logrus.Entry
}

// Body claims the message payload and returns a view that collects it.
// Header problems are not reported here but on the first call to Poll.
func Body(m Message) *MessageBody {
	return &MessageBody{
		src:    m.TakePayload(),
		limit:  DefaultLimit,
		pre:    newPreflight(m),
		logger: defaultLogger(),
	}
}

// Limit changes the maximum body size. It has no effect once consumption began.
func (b *MessageBody) Limit(n int) *MessageBody {
	if b.state == bodyStateInit {
		b.limit = clampLimit(n)
	}
	return b
}

// Logger sets the logger used to report the outcome.
func (b *MessageBody) Logger(l *logrus.Entry) *MessageBody {
	b.logger = l
	return b
}

// Poll advances the collection. It returns the body once the source
// reached end of data, ErrNotReady when it has to be called again,
// or a terminal error.
func (b *MessageBody) Poll() ([]byte, error) {
	switch b.state {
	case bodyStateInit:
		if err := b.pre.check(b.limit); err != nil {
			return nil, b.fail(err)
		}
		b.acc = newAccumulator(b.src, b.limit)
		b.state = bodyStateDraining

	case bodyStateDone:
		return nil, ErrBodyConsumed

	case bodyStateFailed:
		return nil, b.err
	}

	err := b.acc.drain()
	switch {
	case err == nil:
		body := b.acc.bytes()
		b.state = bodyStateDone
		b.logger.WithField("size", len(body)).Debug("Message body collected")
		return body, nil

	case err == ErrNotReady:
		return nil, ErrNotReady

	default:
		return nil, b.fail(err)
	}
}

// Bytes drives Poll until the body is complete, waiting on the source
// when it is not ready.
func (b *MessageBody) Bytes(ctx context.Context) ([]byte, error) {
	for {
		body, err := b.Poll()
		if err != ErrNotReady {
			return body, err
		}

		if err := waitReady(ctx, b.src); err != nil {
			return nil, err
		}
	}
}

func (b *MessageBody) fail(err error) error {
	b.state = bodyStateFailed
	b.err = err
	b.logger.WithError(err).WithField("limit", b.limit).Debug("Message body collection failed")
	return err
}
