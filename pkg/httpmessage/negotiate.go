package httpmessage

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
)

// MediaType is a parsed Content-Type value.
type MediaType struct {
	Type    string
	Subtype string
	Params  map[string]string
}

// Essence returns "type/subtype".
func (mt MediaType) Essence() string {
	return mt.Type + "/" + mt.Subtype
}

// Param returns the value of a parameter. Names are case-insensitive.
func (mt MediaType) Param(name string) (string, bool) {
	v, ok := mt.Params[strings.ToLower(name)]
	return v, ok
}

// String implements fmt.Stringer.
func (mt MediaType) String() string {
	return mime.FormatMediaType(mt.Essence(), mt.Params)
}

// ParseMediaType parses a Content-Type value.
func ParseMediaType(v string) (MediaType, error) {
	if !isHeaderText(v) {
		return MediaType{}, fmt.Errorf("%w: not valid header text", ErrContentTypeParse)
	}

	essence, params, err := mime.ParseMediaType(v)
	if err != nil {
		return MediaType{}, fmt.Errorf("%w: %v", ErrContentTypeParse, err)
	}

	// mime also accepts disposition values, which have no subtype
	typ, subtype, ok := strings.Cut(essence, "/")
	if !ok || typ == "" || subtype == "" {
		return MediaType{}, fmt.Errorf("%w: %q has no subtype", ErrContentTypeParse, v)
	}

	return MediaType{
		Type:    typ,
		Subtype: subtype,
		Params:  params,
	}, nil
}

// ContentType returns the lower-cased media type of the message, without
// parameters. It returns an empty string when Content-Type is missing
// or isn't valid header text.
func ContentType(m Message) string {
	v := m.Header().Get("Content-Type")
	if v == "" || !isHeaderText(v) {
		return ""
	}

	typ, _, _ := strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(typ))
}

// MimeType parses the Content-Type header of the message.
// It returns nil when the header is missing.
func MimeType(m Message) (*MediaType, error) {
	vals := m.Header().Values("Content-Type")
	if len(vals) == 0 {
		return nil, nil
	}

	mt, err := ParseMediaType(vals[0])
	if err != nil {
		return nil, err
	}
	return &mt, nil
}

// Encoding returns the charset declared by the Content-Type header,
// or UTF-8 when there is none.
func Encoding(m Message) (Charset, error) {
	mt, err := MimeType(m)
	if err != nil {
		return Charset{}, err
	}

	if mt == nil {
		return UTF8, nil
	}

	label, ok := mt.Param("charset")
	if !ok {
		return UTF8, nil
	}

	return LookupCharset(label)
}

// Chunked reports whether the message declares chunked transfer encoding.
// It only inspects the header; it does not decode chunked framing.
func Chunked(m Message) (bool, error) {
	vals := m.Header().Values("Transfer-Encoding")
	if len(vals) == 0 {
		return false, nil
	}

	if !isHeaderText(vals[0]) {
		return false, fmt.Errorf("%w: Transfer-Encoding", ErrHeaderValue)
	}

	return strings.Contains(strings.ToLower(vals[0]), "chunked"), nil
}

// isHeaderText reports whether v only contains visible ASCII, spaces and tabs.
func isHeaderText(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b != '\t' && (b < 0x20 || b > 0x7e) {
			return false
		}
	}
	return true
}

// contentLength parses the Content-Length header.
// ok is false when the header is missing.
func contentLength(m Message) (n uint64, ok bool, err error) {
	vals := m.Header().Values("Content-Length")
	if len(vals) == 0 {
		return 0, false, nil
	}

	v := vals[0]
	if !isHeaderText(v) {
		return 0, true, fmt.Errorf("%w: Content-Length is not valid header text", ErrUnknownLength)
	}

	n, err = strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %q", ErrUnknownLength, v)
	}

	return n, true, nil
}
