// Package line implements newline-delimited framing of UTF-8 text.
package line

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrTooLong - line exceeds configured limit before its terminator was seen.
	ErrTooLong = errors.New("line: too long")

	// ErrInvalidUTF8 - line is not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("line: invalid UTF-8")
)

// Reader - reads '\n' terminated lines from the underlying stream.
// Terminator is kept in returned line. Internal buffer is reused between reads.
type Reader struct {
	src *bufio.Reader
	max int
	buf []byte
}

// NewReader - builds line reader accepting lines up to max bytes (terminator included).
func NewReader(r io.Reader, max int) (*Reader, error) {
	if max <= 0 {
		return nil, fmt.Errorf("line.NewReader: invalid max length (%d)", max)
	}
	size := 4096
	if max < size {
		size = max
	}
	return &Reader{
		src: bufio.NewReaderSize(r, size),
		max: max,
	}, nil
}

// ReadLine - returns next complete line.
//
// Returns io.EOF at clean end of stream and io.ErrUnexpectedEOF when stream
// ended in the middle of a line; the partial line is dropped.
func (r *Reader) ReadLine() (string, error) {
	r.buf = r.buf[:0]
	for {
		chunk, err := r.src.ReadSlice('\n')
		if len(r.buf)+len(chunk) > r.max {
			return "", ErrTooLong
		}
		r.buf = append(r.buf, chunk...)
		switch {
		case err == nil:
			if !utf8.Valid(r.buf) {
				return "", ErrInvalidUTF8
			}
			return string(r.buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(r.buf) > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", io.EOF
		default:
			return "", err
		}
	}
}
