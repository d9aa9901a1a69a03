package httpmessage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sirupsen/logrus"
)

// FormContentType is the media type accepted by Form.
const FormContentType = "application/x-www-form-urlencoded"

// URLEncoded collects an application/x-www-form-urlencoded body and
// decodes it into a value of type T.
//
// T is filled the way mapstructure fills a struct from a map: fields match
// keys case-insensitively, or through a `form:"name"` tag. Keys that occur
// once are strings, repeated keys are []string.
type URLEncoded[T any] struct {
	src     ChunkSource
	limit   int
	pre     preflight
	charset Charset
	state   bodyState
	acc     *accumulator
	size    int
	err     error
	logger  *logrus.Entry
}

// Form returns a view that decodes the message payload as an urlencoded
// form. Precondition failures (content type, charset, Content-Length) are
// reported on the first call to Poll. The payload is only claimed when
// the content type and charset are acceptable.
func Form[T any](m Message) *URLEncoded[T] {
	f := &URLEncoded[T]{
		limit:   DefaultLimit,
		charset: UTF8,
		logger:  defaultLogger(),
	}

	if ContentType(m) != FormContentType {
		f.pre.err = fmt.Errorf("%w: got %q", ErrFormContentType, ContentType(m))
		return f
	}

	cs, err := Encoding(m)
	if err != nil {
		f.pre.err = fmt.Errorf("%w: %w", ErrFormContentType, err)
		return f
	}
	f.charset = cs

	f.pre = newPreflight(m)
	f.src = m.TakePayload()
	return f
}

// Limit changes the maximum body size. It has no effect once consumption began.
func (f *URLEncoded[T]) Limit(n int) *URLEncoded[T] {
	if f.state == bodyStateInit {
		f.limit = clampLimit(n)
	}
	return f
}

// Size returns the number of body bytes the form was decoded from.
// It is zero until Poll succeeded.
func (f *URLEncoded[T]) Size() int {
	return f.size
}

// Logger sets the logger used to report the outcome.
func (f *URLEncoded[T]) Logger(l *logrus.Entry) *URLEncoded[T] {
	f.logger = l
	return f
}

// Poll advances the collection. It returns the decoded form once the
// source reached end of data, ErrNotReady when it has to be called again,
// or a terminal error.
func (f *URLEncoded[T]) Poll() (T, error) {
	var zero T

	switch f.state {
	case bodyStateInit:
		if err := f.pre.check(f.limit); err != nil {
			return zero, f.fail(err)
		}
		f.acc = newAccumulator(f.src, f.limit)
		f.state = bodyStateDraining

	case bodyStateDone:
		return zero, ErrBodyConsumed

	case bodyStateFailed:
		return zero, f.err
	}

	err := f.acc.drain()
	switch {
	case err == nil:
		body := f.acc.bytes()
		v, err := decodeForm[T](body, f.charset)
		if err != nil {
			return zero, f.fail(err)
		}
		f.state = bodyStateDone
		f.size = len(body)
		f.logger.WithFields(logrus.Fields{
			"size":    len(body),
			"charset": f.charset.Name(),
		}).Debug("Urlencoded form decoded")
		return v, nil

	case err == ErrNotReady:
		return zero, ErrNotReady

	default:
		return zero, f.fail(err)
	}
}

// Decode drives Poll until the form is decoded, waiting on the source
// when it is not ready.
func (f *URLEncoded[T]) Decode(ctx context.Context) (T, error) {
	for {
		v, err := f.Poll()
		if err != ErrNotReady {
			return v, err
		}

		if err := waitReady(ctx, f.src); err != nil {
			var zero T
			return zero, err
		}
	}
}

func (f *URLEncoded[T]) fail(err error) error {
	f.state = bodyStateFailed
	f.err = err
	f.logger.WithError(err).WithField("limit", f.limit).Debug("Urlencoded form decoding failed")
	return err
}

func decodeForm[T any](body []byte, cs Charset) (T, error) {
	var out T

	text, err := cs.Decode(body)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrFormParse, err)
	}

	values, keys, err := parseURLEncoded(text)
	if err != nil {
		return out, err
	}

	input := make(map[string]any, len(values))
	for _, key := range keys {
		vals := values[key]
		if !utf8.ValidString(key) {
			return out, fmt.Errorf("%w: key %q is not valid utf-8", ErrFormParse, key)
		}
		for _, v := range vals {
			if !utf8.ValidString(v) {
				return out, fmt.Errorf("%w: value of %q is not valid utf-8", ErrFormParse, key)
			}
		}

		if len(vals) == 1 {
			input[key] = vals[0]
		} else {
			input[key] = vals
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "form",
		WeaklyTypedInput: true,
		MatchName:        strings.EqualFold,
	})
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrFormParse, err)
	}

	if err := dec.Decode(input); err != nil {
		return out, fmt.Errorf("%w: %v", ErrFormParse, err)
	}

	return out, nil
}

// parseURLEncoded splits s on '&' only, so ';' is an ordinary character.
// keys lists every distinct key in order of first appearance.
func parseURLEncoded(s string) (values map[string][]string, keys []string, err error) {
	values = make(map[string][]string)
	for s != "" {
		var pair string
		pair, s, _ = strings.Cut(s, "&")
		if pair == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrFormParse, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrFormParse, err)
		}

		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = append(values[key], value)
	}
	return values, keys, nil
}
