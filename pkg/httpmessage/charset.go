package httpmessage

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Charset is a resolved text encoding.
type Charset struct {
	name string
	enc  encoding.Encoding
	utf8 bool
}

// UTF8 is the default charset.
var UTF8 = Charset{
	name: "utf-8",
	enc:  unicode.UTF8,
	utf8: true,
}

// LookupCharset resolves a WHATWG encoding label, like "ISO-8859-2" or "latin1".
func LookupCharset(label string) (Charset, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return Charset{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}

	name, err := htmlindex.Name(enc)
	if err != nil {
		return Charset{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}

	if name == UTF8.name {
		return UTF8, nil
	}

	return Charset{
		name: name,
		enc:  enc,
	}, nil
}

// Name returns the canonical WHATWG name of the charset.
func (c Charset) Name() string {
	return c.name
}

// IsUTF8 reports whether c is UTF-8.
func (c Charset) IsUTF8() bool {
	return c.utf8
}

// String implements fmt.Stringer.
func (c Charset) String() string {
	return c.name
}

// Decode decodes b into a string. Any byte sequence that has no mapping
// in the charset is an error.
func (c Charset) Decode(b []byte) (string, error) {
	if c.utf8 || c.enc == nil {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: invalid utf-8", ErrEncoding)
		}
		return string(b), nil
	}

	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	// decoders replace unmappable input with U+FFFD.
	// A replacement character is only legitimate if it encodes back to the input.
	if bytes.ContainsRune(out, utf8.RuneError) {
		back, err := c.enc.NewEncoder().Bytes(out)
		if err != nil || !bytes.Equal(back, b) {
			return "", fmt.Errorf("%w: unmappable bytes for %s", ErrEncoding, c.name)
		}
	}

	return string(out), nil
}

// Encode encodes s. Characters that can't be represented are an error.
func (c Charset) Encode(s string) ([]byte, error) {
	if c.utf8 || c.enc == nil {
		return []byte(s), nil
	}

	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return out, nil
}
