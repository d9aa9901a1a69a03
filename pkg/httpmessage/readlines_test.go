package httpmessage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/httpmessage/pkg/httpmessage"
	"github.com/guided-traffic/httpmessage/pkg/httpmessage/httpmessagetest"
)

const loremIpsum = "Lorem Ipsum is simply dummy text of the printing and typesetting\n" +
	"industry. Lorem Ipsum has been the industry's standard dummy\n" +
	"Contrary to popular belief, Lorem Ipsum is not simply random text."

func collectLines(t *testing.T, r *httpmessage.Readlines) ([]string, error) {
	t.Helper()

	var lines []string
	for line, err := range r.All(context.Background()) {
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func TestReadlines(t *testing.T) {
	req := httpmessagetest.NewRequest().Payload([]byte(loremIpsum)).Finish()
	r := httpmessage.Lines(req)

	line, err := r.Poll()
	require.NoError(t, err)
	assert.Equal(t, "Lorem Ipsum is simply dummy text of the printing and typesetting\n", line)

	line, err = r.Poll()
	require.NoError(t, err)
	assert.Equal(t, "industry. Lorem Ipsum has been the industry's standard dummy\n", line)

	line, err = r.Poll()
	require.NoError(t, err)
	assert.Equal(t, "Contrary to popular belief, Lorem Ipsum is not simply random text.", line)

	_, err = r.Poll()
	assert.Equal(t, io.EOF, err)
	_, err = r.Poll()
	assert.Equal(t, io.EOF, err)
}

func TestReadlinesRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"\n",
		"\n\n\n",
		"no newline at all",
		"trailing newline\n",
		"a\nbb\n\nccc\ndddd",
		"zażółć gęślą jaźń\nłódź\n",
		loremIpsum,
	}

	for _, in := range inputs {
		for size := 1; size <= len(in)+1; size++ {
			req := httpmessagetest.NewRequest().
				Chunks(httpmessagetest.Split([]byte(in), size)...).
				Finish()

			lines, err := collectLines(t, httpmessage.Lines(req))
			require.NoError(t, err)
			assert.Equal(t, in, strings.Join(lines, ""), "chunk size %d", size)

			for i, line := range lines {
				if i < len(lines)-1 {
					assert.True(t, strings.HasSuffix(line, "\n"))
				}
				assert.LessOrEqual(t, strings.Count(line, "\n"), 1)
			}
		}
	}
}

func TestReadlinesManyLinesInOneChunk(t *testing.T) {
	const n = 100000
	big := strings.Repeat("ab\n", n) + "ta"

	src := httpmessagetest.NewSource([]byte(big), []byte("il\nlast"))
	req := httpmessagetest.NewRequest().Source(src).Finish()

	lines, err := collectLines(t, httpmessage.Lines(req).Limit(8))
	require.NoError(t, err)
	require.Len(t, lines, n+2)

	for _, line := range lines[:n] {
		if line != "ab\n" {
			require.Equal(t, "ab\n", line)
		}
	}
	assert.Equal(t, "tail\n", lines[n])
	assert.Equal(t, "last", lines[n+1])
	assert.Equal(t, big+"il\nlast", strings.Join(lines, ""))
	assert.Equal(t, 3, src.Pulls())
}

func TestReadlinesNotReady(t *testing.T) {
	src := httpmessagetest.NewSource([]byte("first"), []byte(" line\nsecond"), []byte(" line")).Stall()
	req := httpmessagetest.NewRequest().Source(src).Finish()
	r := httpmessage.Lines(req)

	var lines []string
	for {
		line, err := r.Poll()
		if errors.Is(err, httpmessage.ErrNotReady) {
			continue
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"first line\n", "second line"}, lines)
}

func TestReadlinesNext(t *testing.T) {
	src := httpmessagetest.NewSource([]byte("a\nb"), []byte("\nc")).Stall()
	req := httpmessagetest.NewRequest().Source(src).Finish()
	r := httpmessage.Lines(req)

	lines, err := collectLines(t, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"a\n", "b\n", "c"}, lines)
	assert.Positive(t, src.Waits())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src = httpmessagetest.NewSource([]byte("x")).Stall()
	req = httpmessagetest.NewRequest().Source(src).Finish()
	_, err = httpmessage.Lines(req).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadlinesLimit(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		lines  []string
	}{
		{
			name:   "single chunk",
			chunks: []string{"0123456789\n"},
		},
		{
			name:   "line in the buffer",
			chunks: []string{"ok\n0123456789\n"},
			lines:  []string{"ok\n"},
		},
		{
			name:   "line spread over chunks",
			chunks: []string{"abc", "def\n"},
		},
		{
			name:   "no newline",
			chunks: []string{"abc", "def", "ghi"},
		},
		{
			name:   "last line",
			chunks: []string{"ab\n", "cdefgh"},
			lines:  []string{"ab\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := make([][]byte, 0, len(tt.chunks))
			for _, c := range tt.chunks {
				chunks = append(chunks, []byte(c))
			}
			req := httpmessagetest.NewRequest().Chunks(chunks...).Finish()
			r := httpmessage.Lines(req).Limit(5)

			lines, err := collectLines(t, r)
			assert.ErrorIs(t, err, httpmessage.ErrLineTooLong)
			assert.Equal(t, tt.lines, lines)

			// the decoder stays failed
			_, again := r.Poll()
			assert.Equal(t, err, again)
		})
	}
}

func TestReadlinesLimitExact(t *testing.T) {
	req := httpmessagetest.NewRequest().Chunks([]byte("ab"), []byte("cd\nefghi")).Finish()
	lines, err := collectLines(t, httpmessage.Lines(req).Limit(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd\n", "efghi"}, lines)
}

func TestReadlinesLimitIgnoredAfterStart(t *testing.T) {
	req := httpmessagetest.NewRequest().Payload([]byte("short\na much longer line\n")).Finish()
	r := httpmessage.Lines(req)

	line, err := r.Poll()
	require.NoError(t, err)
	assert.Equal(t, "short\n", line)

	r.Limit(3)
	line, err = r.Poll()
	require.NoError(t, err)
	assert.Equal(t, "a much longer line\n", line)
}

func TestReadlinesCharset(t *testing.T) {
	// "żółw\nłoś" in iso-8859-2
	body := []byte{0xbf, 0xf3, 0xb3, 'w', '\n', 0xb3, 'o', 0xb6}
	req := httpmessagetest.WithHeader("Content-Type", "text/plain; charset=iso-8859-2").
		Chunks(httpmessagetest.Split(body, 3)...).
		Finish()

	r := httpmessage.Lines(req)
	assert.Equal(t, "iso-8859-2", r.Charset().Name())

	lines, err := collectLines(t, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"żółw\n", "łoś"}, lines)
}

func TestReadlinesEncodingError(t *testing.T) {
	req := httpmessagetest.NewRequest().Payload([]byte("good\nbad \xff\n")).Finish()
	lines, err := collectLines(t, httpmessage.Lines(req))
	assert.ErrorIs(t, err, httpmessage.ErrEncoding)
	assert.Equal(t, []string{"good\n"}, lines)
}

func TestReadlinesPoisoned(t *testing.T) {
	req := httpmessagetest.WithHeader("Content-Type", "text/plain; charset=kkkttktk").
		Payload([]byte("line\n")).
		Finish()
	r := httpmessage.Lines(req)

	_, err := r.Poll()
	assert.ErrorIs(t, err, httpmessage.ErrUnknownEncoding)
	_, err = r.Poll()
	assert.ErrorIs(t, err, httpmessage.ErrUnknownEncoding)

	req = httpmessagetest.WithHeader("Content-Type", "text").Finish()
	_, err = httpmessage.Lines(req).Poll()
	assert.ErrorIs(t, err, httpmessage.ErrContentTypeParse)
}

func TestReadlinesSourceError(t *testing.T) {
	boom := errors.New("connection reset")
	src := httpmessagetest.NewSource([]byte("one\ntw")).FailWith(boom)
	req := httpmessagetest.NewRequest().Source(src).Finish()

	lines, err := collectLines(t, httpmessage.Lines(req))
	var srcErr *httpmessage.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"one\n"}, lines)
}
