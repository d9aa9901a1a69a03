package httpmessage_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
)

func TestReaderSource(t *testing.T) {
	src := httpmessage.NewReaderSource(strings.NewReader("hello world"), 4)

	var chunks []string
	for {
		chunk, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, string(chunk))
	}
	assert.Equal(t, []string{"hell", "o wo", "rld"}, chunks)

	_, err := src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderSourceDataWithEOF(t *testing.T) {
	src := httpmessage.NewReaderSource(iotest.DataErrReader(strings.NewReader("abc")), 0)

	chunk, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), chunk)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderSourceError(t *testing.T) {
	boom := errors.New("boom")
	src := httpmessage.NewReaderSource(iotest.ErrReader(boom), 16)

	_, err := src.Next()
	assert.ErrorIs(t, err, boom)
	_, err = src.Next()
	assert.ErrorIs(t, err, boom)
}

func TestPayloadTake(t *testing.T) {
	p := httpmessage.NewPayload(httpmessage.NewReaderSource(strings.NewReader("x"), 1))
	assert.False(t, p.Taken())

	src := p.Take()
	assert.True(t, p.Taken())
	chunk, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), chunk)

	_, err = p.Take().Next()
	assert.Equal(t, io.EOF, err)
}
