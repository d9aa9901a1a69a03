package httpmessage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
	"github.com/guided-traffic/httpmessage/pkg/httpmessage/httpmessagetest"
)

func TestCookies(t *testing.T) {
	req := httpmessagetest.NewRequest().
		Header("Cookie", "a=1; b=2;; ").
		Header("Cookie", "c=hello%20world; d=\"quoted\"").
		Finish()

	cookies, err := httpmessage.Cookies(req)
	require.NoError(t, err)
	require.Len(t, cookies, 4)

	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	assert.Equal(t, "hello world", cookies[2].Value)
	assert.Equal(t, "quoted", cookies[3].Value)

	c := httpmessage.Cookie(req, "b")
	require.NotNil(t, c)
	assert.Equal(t, "2", c.Value)
	assert.Nil(t, httpmessage.Cookie(req, "missing"))
}

func TestCookiesCached(t *testing.T) {
	req := httpmessagetest.WithHeader("Cookie", "session=abc").Finish()

	first, err := httpmessage.Cookies(req)
	require.NoError(t, err)

	req.Header().Set("Cookie", "session=changed; other=1")

	second, err := httpmessage.Cookies(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, "abc", second[0].Value)

	// the copy returned by Cookie doesn't alias the cache
	c := httpmessage.Cookie(req, "session")
	c.Value = "mutated"
	assert.Equal(t, "abc", httpmessage.Cookie(req, "session").Value)
}

func TestCookiesNone(t *testing.T) {
	req := httpmessagetest.NewRequest().Finish()
	cookies, err := httpmessage.Cookies(req)
	require.NoError(t, err)
	assert.Empty(t, cookies)
	assert.Nil(t, httpmessage.Cookie(req, "a"))
}

func TestCookiesError(t *testing.T) {
	tests := []struct {
		name   string
		header string
		err    error
	}{
		{"invalid utf-8", "a=\xff\xfe", httpmessage.ErrCookieEncoding},
		{"invalid escape", "a=%zz", httpmessage.ErrCookieEncoding},
		{"escape to invalid utf-8", "a=%ff", httpmessage.ErrCookieEncoding},
		{"missing pair", "a=1; novalue", httpmessage.ErrMalformedCookie},
		{"empty name", "=value", httpmessage.ErrMalformedCookie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httpmessagetest.WithHeader("Cookie", tt.header).Finish()

			_, err := httpmessage.Cookies(req)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, httpmessage.Cookie(req, "a"))

			// failures are not cached
			req.Header().Set("Cookie", "a=ok")
			c := httpmessage.Cookie(req, "a")
			require.NotNil(t, c)
			assert.Equal(t, "ok", c.Value)
		})
	}
}
