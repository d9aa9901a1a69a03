package httpmessage

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// cookieJar is the extension under which parsed cookies are cached.
type cookieJar []*http.Cookie

// Cookies parses the Cookie headers of the message.
//
// The result is cached in the message extensions on the first successful
// call and returned as-is by later calls, even if the headers changed.
// The returned cookies must not be modified.
func Cookies(m Message) ([]*http.Cookie, error) {
	if jar, ok := GetExtension[cookieJar](m.Extensions()); ok {
		return jar, nil
	}

	var jar cookieJar
	for _, hdr := range m.Header().Values("Cookie") {
		if !utf8.ValidString(hdr) {
			return nil, fmt.Errorf("%w: header is not valid utf-8", ErrCookieEncoding)
		}

		for _, part := range strings.Split(hdr, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			c, err := parseEncodedCookie(part)
			if err != nil {
				return nil, err
			}
			jar = append(jar, c)
		}
	}

	InsertExtension(m.Extensions(), jar)
	return jar, nil
}

// Cookie returns a copy of the first cookie with the given name,
// or nil when there is none or the cookies can't be parsed.
func Cookie(m Message, name string) *http.Cookie {
	cookies, err := Cookies(m)
	if err != nil {
		return nil
	}

	for _, c := range cookies {
		if c.Name == name {
			cp := *c
			return &cp
		}
	}
	return nil
}

// parseEncodedCookie parses a percent-encoded name=value pair.
func parseEncodedCookie(s string) (*http.Cookie, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no '='", ErrMalformedCookie, s)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: %q has an empty name", ErrMalformedCookie, s)
	}

	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	dname, err := unescapeCookiePart(name)
	if err != nil {
		return nil, err
	}

	dvalue, err := unescapeCookiePart(value)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:  dname,
		Value: dvalue,
		Raw:   s,
	}, nil
}

func unescapeCookiePart(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	out, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCookieEncoding, err)
	}

	if !utf8.ValidString(out) {
		return "", fmt.Errorf("%w: %q decodes to invalid utf-8", ErrCookieEncoding, s)
	}

	return out, nil
}
