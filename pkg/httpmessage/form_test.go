package httpmessage_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
	"github.com/guided-traffic/httpmessage/pkg/httpmessage/httpmessagetest"
)

type info struct {
	Hello string
}

func TestURLEncodedError(t *testing.T) {
	req := httpmessagetest.WithHeader("Content-Type", "application/x-www-form-urlencoded").
		Header("Content-Length", "xxxx").
		Finish()
	_, err := httpmessage.Form[info](req).Poll()
	assert.ErrorIs(t, err, httpmessage.ErrUnknownLength)

	req = httpmessagetest.WithHeader("Content-Type", "application/x-www-form-urlencoded").
		Header("Content-Length", "1000000").
		Finish()
	_, err = httpmessage.Form[info](req).Poll()
	assert.ErrorIs(t, err, httpmessage.ErrOverflow)

	req = httpmessagetest.WithHeader("Content-Type", "text/plain").
		Header("Content-Length", "10").
		Finish()
	_, err = httpmessage.Form[info](req).Poll()
	assert.ErrorIs(t, err, httpmessage.ErrFormContentType)

	req = httpmessagetest.WithHeader("Content-Type", "application/x-www-form-urlencoded; charset=kkkttktk").
		Finish()
	_, err = httpmessage.Form[info](req).Poll()
	assert.ErrorIs(t, err, httpmessage.ErrFormContentType)
	assert.ErrorIs(t, err, httpmessage.ErrUnknownEncoding)
}

func TestURLEncoded(t *testing.T) {
	for _, ct := range []string{
		"application/x-www-form-urlencoded",
		"application/x-www-form-urlencoded; charset=utf-8",
		"Application/X-WWW-Form-Urlencoded",
	} {
		t.Run(ct, func(t *testing.T) {
			req := httpmessagetest.WithHeader("Content-Type", ct).
				Header("Content-Length", "11").
				Payload([]byte("hello=world")).
				Finish()

			v, err := httpmessage.Form[info](req).Poll()
			require.NoError(t, err)
			assert.Equal(t, info{Hello: "world"}, v)
		})
	}
}

func TestURLEncodedTargets(t *testing.T) {
	type order struct {
		Item     string   `form:"item"`
		Quantity int      `form:"qty"`
		Tags     []string `form:"tag"`
		Gift     bool     `form:"gift"`
	}

	body := []byte("item=tea+pot&qty=3&tag=kitchen&tag=gift%20idea&gift=1&ignored=x")
	newReq := func() *httpmessage.Request {
		return httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
			Chunks(httpmessagetest.Split(body, 7)...).
			Finish()
	}

	o, err := httpmessage.Form[order](newReq()).Poll()
	require.NoError(t, err)
	assert.Equal(t, order{
		Item:     "tea pot",
		Quantity: 3,
		Tags:     []string{"kitchen", "gift idea"},
		Gift:     true,
	}, o)

	m, err := httpmessage.Form[map[string]any](newReq()).Poll()
	require.NoError(t, err)
	assert.Equal(t, "tea pot", m["item"])
	assert.Equal(t, []string{"kitchen", "gift idea"}, m["tag"])

	vals, err := httpmessage.Form[url.Values](newReq()).Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, vals["qty"])
}

func TestURLEncodedCharset(t *testing.T) {
	// "miasto=Łódź" in iso-8859-2
	body := []byte{'m', 'i', 'a', 's', 't', 'o', '=', 0xa3, 0xf3, 'd', 0xbc}
	req := httpmessagetest.WithHeader("Content-Type", "application/x-www-form-urlencoded; charset=ISO-8859-2").
		Payload(body).
		Finish()

	v, err := httpmessage.Form[map[string]string](req).Poll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"miasto": "Łódź"}, v)
}

func TestURLEncodedParseError(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"invalid utf-8", []byte("hello=\xff")},
		{"invalid escape", []byte("hello=%zz")},
		{"escape to invalid utf-8", []byte("hello=%ff")},
		{"type mismatch", []byte("qty=many")},
	}

	type target struct {
		Hello string
		Qty   int
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
				Payload(tt.body).
				Finish()

			_, err := httpmessage.Form[target](req).Poll()
			assert.ErrorIs(t, err, httpmessage.ErrFormParse)
		})
	}
}

func TestURLEncodedOverflow(t *testing.T) {
	req := httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
		Chunks([]byte("hello="), []byte("world")).
		Finish()

	f := httpmessage.Form[info](req).Limit(8)
	_, err := f.Poll()
	assert.ErrorIs(t, err, httpmessage.ErrOverflow)

	_, err = f.Poll()
	assert.ErrorIs(t, err, httpmessage.ErrOverflow)
}

func TestURLEncodedDecode(t *testing.T) {
	src := httpmessagetest.NewSource([]byte("hel"), []byte("lo=wo"), []byte("rld")).Stall()
	req := httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
		Source(src).
		Finish()

	f := httpmessage.Form[info](req)
	v, err := f.Decode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, info{Hello: "world"}, v)

	_, err = f.Poll()
	assert.ErrorIs(t, err, httpmessage.ErrBodyConsumed)
}

func TestURLEncodedSemicolon(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected map[string]interface{}
	}{
		{"semicolon in value", "hello=wor;ld", map[string]interface{}{"hello": "wor;ld"}},
		{"semicolon in key", "a;b=1&c=2", map[string]interface{}{"a;b": "1", "c": "2"}},
		{"escaped semicolon", "hello=wor%3Bld", map[string]interface{}{"hello": "wor;ld"}},
		{"plus and empty pairs", "a=x+y&&b=&c", map[string]interface{}{"a": "x y", "b": "", "c": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
				Payload([]byte(tt.body)).
				Finish()

			v, err := httpmessage.Form[map[string]interface{}](req).Poll()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}

	req := httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
		Payload([]byte("hello=wor;ld")).
		Finish()
	v, err := httpmessage.Form[info](req).Poll()
	require.NoError(t, err)
	assert.Equal(t, info{Hello: "wor;ld"}, v)
}

func TestURLEncodedSize(t *testing.T) {
	req := httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
		Chunks([]byte("hello="), []byte("world")).
		Finish()

	f := httpmessage.Form[info](req)
	assert.Equal(t, 0, f.Size())

	_, err := f.Decode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, f.Size())
}

func TestURLEncodedLeavesPayloadOnPreconditionFailure(t *testing.T) {
	for _, ct := range []string{
		"text/plain",
		"application/x-www-form-urlencoded; charset=kkkttktk",
	} {
		t.Run(ct, func(t *testing.T) {
			req := httpmessagetest.WithHeader("Content-Type", ct).
				Payload([]byte("hello=world")).
				Finish()

			_, err := httpmessage.Form[info](req).Poll()
			require.ErrorIs(t, err, httpmessage.ErrFormContentType)

			body, err := httpmessage.Body(req).Poll()
			require.NoError(t, err)
			assert.Equal(t, []byte("hello=world"), body)
		})
	}

	req := httpmessagetest.WithHeader("Content-Type", httpmessage.FormContentType).
		Payload([]byte("hello=world")).
		Finish()
	_, err := httpmessage.Form[info](req).Poll()
	require.NoError(t, err)

	body, err := httpmessage.Body(req).Poll()
	require.NoError(t, err)
	assert.Empty(t, body)
}
