package httpmessage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
)

func TestLookupCharset(t *testing.T) {
	cs, err := httpmessage.LookupCharset("UTF8")
	require.NoError(t, err)
	assert.True(t, cs.IsUTF8())
	assert.Equal(t, httpmessage.UTF8, cs)

	cs, err = httpmessage.LookupCharset(" iso-8859-2 ")
	require.NoError(t, err)
	assert.False(t, cs.IsUTF8())
	assert.Equal(t, "iso-8859-2", cs.String())

	_, err = httpmessage.LookupCharset("kkkttktk")
	assert.ErrorIs(t, err, httpmessage.ErrUnknownEncoding)
}

func TestCharsetDecode(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		in       []byte
		expected string
	}{
		{"utf-8", "utf-8", []byte("zażółć\n"), "zażółć\n"},
		{"iso-8859-2", "iso-8859-2", []byte{'z', 'a', 0xbf, 0xf3, 0xb3, 0xe6}, "zażółć"},
		{"windows-1250", "windows-1250", []byte{0x9c, 'w', 'i', 'a', 't'}, "świat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := httpmessage.LookupCharset(tt.label)
			require.NoError(t, err)

			out, err := cs.Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)

			back, err := cs.Encode(out)
			require.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestCharsetDecodeStrict(t *testing.T) {
	_, err := httpmessage.UTF8.Decode([]byte{'a', 0xff, 'b'})
	assert.ErrorIs(t, err, httpmessage.ErrEncoding)

	// 0xd2 has no mapping in iso-8859-7
	cs, err := httpmessage.LookupCharset("iso-8859-7")
	require.NoError(t, err)
	_, err = cs.Decode([]byte{'A', 0xd2})
	assert.ErrorIs(t, err, httpmessage.ErrEncoding)

	cs, err = httpmessage.LookupCharset("iso-8859-2")
	require.NoError(t, err)
	_, err = cs.Encode("日本")
	assert.ErrorIs(t, err, httpmessage.ErrEncoding)
}
