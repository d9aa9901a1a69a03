package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxWireChunk bounds the size of a single chunk read from a capture
const maxWireChunk = 16 << 20

var errWireFormat = errors.New("malformed chunked body")

// readWireChunks reads a chunked transfer-coded body from r and returns
// its chunks as they were framed in the capture.
//
// Format:
// {hex_chunk_size}[;extension]\r\n
// {chunk_data}\r\n
// ...
// 0\r\n
// [trailer fields]\r\n
func readWireChunks(r *bufio.Reader) ([][]byte, error) {
	var chunks [][]byte
	for {
		size, err := readChunkHeader(r)
		if err != nil {
			return nil, err
		}

		if size == 0 {
			if err := skipTrailers(r); err != nil {
				return nil, err
			}
			return chunks, nil
		}

		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", errWireFormat, len(chunks), err)
		}
		if err := consumeCRLF(r); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", errWireFormat, len(chunks), err)
		}

		chunks = append(chunks, chunk)
	}
}

// readChunkHeader parses a chunk size line, ignoring chunk extensions
func readChunkHeader(r *bufio.Reader) (int64, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read chunk size line: %v", errWireFormat, err)
	}

	line = strings.TrimSpace(line)
	sizeStr, _, _ := strings.Cut(line, ";")
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0, fmt.Errorf("%w: empty chunk size line", errWireFormat)
	}

	size, err := strconv.ParseInt(sizeStr, 16, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: invalid chunk size %q", errWireFormat, sizeStr)
	}
	if size > maxWireChunk {
		return 0, fmt.Errorf("%w: chunk of %d bytes exceeds %d", errWireFormat, size, maxWireChunk)
	}

	return size, nil
}

func consumeCRLF(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	if strings.TrimRight(line, "\r\n") != "" {
		return fmt.Errorf("unexpected data %q after chunk", line)
	}
	return nil
}

// skipTrailers reads trailer fields up to the terminating empty line.
// A capture that ends right after the last chunk is accepted.
func skipTrailers(r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read trailer: %v", errWireFormat, err)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}
