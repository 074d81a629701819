package frame

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Decoder limits.
const (
	// MaxDepth bounds array nesting.
	MaxDepth = 32
	// MaxArrayLen bounds the element count of a single array.
	MaxArrayLen = 1 << 20
	// MaxBulkLen bounds the payload size of a single bulk string.
	MaxBulkLen = 512 << 20
)

var (
	// ErrIncomplete means more bytes are needed before a decision can be made.
	ErrIncomplete = errors.New("frame: incomplete")

	// ErrInvalid means the buffered bytes can never form a valid frame.
	ErrInvalid = errors.New("frame: invalid")
)

var crlf = []byte("\r\n")

// cursor walks a byte slice. Neither pass keeps state across calls.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) getU8() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrIncomplete
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) peekU8() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrIncomplete
	}
	return c.buf[c.pos], nil
}

func (c *cursor) skip(n int) error {
	if len(c.buf)-c.pos < n {
		return ErrIncomplete
	}
	c.pos += n
	return nil
}

// getLine returns the bytes up to the next CRLF and moves past it.
func (c *cursor) getLine() ([]byte, error) {
	i := bytes.Index(c.buf[c.pos:], crlf)
	if i < 0 {
		return nil, ErrIncomplete
	}
	line := c.buf[c.pos : c.pos+i]
	c.pos += i + 2
	return line, nil
}

func (c *cursor) getDecimal() (uint64, error) {
	line, err := c.getLine()
	if err != nil {
		return 0, err
	}
	return parseDecimal(line)
}

func parseDecimal(line []byte) (uint64, error) {
	if len(line) == 0 {
		return 0, fmt.Errorf("%w: empty number", ErrInvalid)
	}
	var n uint64
	for _, b := range line {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: invalid digit %q", ErrInvalid, b)
		}
		d := uint64(b - '0')
		if n > (^uint64(0)-d)/10 {
			return 0, fmt.Errorf("%w: number overflows uint64", ErrInvalid)
		}
		n = n*10 + d
	}
	return n, nil
}

// skipNull consumes the remainder of "$-1\r\n" after the tag byte.
func (c *cursor) skipNull() error {
	if len(c.buf)-c.pos < 4 {
		if !bytes.HasPrefix([]byte("-1\r\n"), c.buf[c.pos:]) {
			return fmt.Errorf("%w: malformed null", ErrInvalid)
		}
		return ErrIncomplete
	}
	if !bytes.Equal(c.buf[c.pos:c.pos+4], []byte("-1\r\n")) {
		return fmt.Errorf("%w: malformed null", ErrInvalid)
	}
	c.pos += 4
	return nil
}

// bulkLen reads a bulk length line and checks that the payload plus its
// terminator is buffered. It returns the payload start offset.
func (c *cursor) bulkLen() (int, int, error) {
	n, err := c.getDecimal()
	if err != nil {
		return 0, 0, err
	}
	if n > MaxBulkLen {
		return 0, 0, fmt.Errorf("%w: bulk length %d exceeds limit", ErrInvalid, n)
	}
	start := c.pos
	if err := c.skip(int(n) + 2); err != nil {
		return 0, 0, err
	}
	if !bytes.Equal(c.buf[c.pos-2:c.pos], crlf) {
		return 0, 0, fmt.Errorf("%w: bulk payload not terminated by CRLF", ErrInvalid)
	}
	return start, int(n), nil
}

func (c *cursor) arrayLen() (int, error) {
	n, err := c.getDecimal()
	if err != nil {
		return 0, err
	}
	if n > MaxArrayLen {
		return 0, fmt.Errorf("%w: array length %d exceeds limit", ErrInvalid, n)
	}
	return int(n), nil
}

// Check reports whether buf starts with one complete frame and returns the
// number of bytes it spans. Payloads are not copied.
func Check(buf []byte) (int, error) {
	c := &cursor{buf: buf}
	if err := c.check(0); err != nil {
		return 0, err
	}
	return c.pos, nil
}

func (c *cursor) check(depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrInvalid, MaxDepth)
	}
	tag, err := c.getU8()
	if err != nil {
		return err
	}
	switch tag {
	case '+', '-':
		_, err := c.getLine()
		return err
	case ':':
		_, err := c.getDecimal()
		return err
	case '$':
		b, err := c.peekU8()
		if err != nil {
			return err
		}
		if b == '-' {
			return c.skipNull()
		}
		_, _, err = c.bulkLen()
		return err
	case '*':
		n, err := c.arrayLen()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := c.check(depth + 1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown tag byte %q", ErrInvalid, tag)
	}
}

// Parse decodes one frame from the start of buf and returns it together with
// the number of bytes consumed. Bulk payloads are copied out of buf.
func Parse(buf []byte) (Frame, int, error) {
	c := &cursor{buf: buf}
	f, err := c.parse(0)
	if err != nil {
		return nil, 0, err
	}
	return f, c.pos, nil
}

func (c *cursor) parse(depth int) (Frame, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalid, MaxDepth)
	}
	tag, err := c.getU8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case '+', '-':
		line, err := c.getLine()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(line) {
			return nil, fmt.Errorf("%w: line is not valid UTF-8", ErrInvalid)
		}
		if tag == '+' {
			return Simple(line), nil
		}
		return Error(line), nil
	case ':':
		n, err := c.getDecimal()
		if err != nil {
			return nil, err
		}
		return Integer(n), nil
	case '$':
		b, err := c.peekU8()
		if err != nil {
			return nil, err
		}
		if b == '-' {
			if err := c.skipNull(); err != nil {
				return nil, err
			}
			return Null{}, nil
		}
		start, n, err := c.bulkLen()
		if err != nil {
			return nil, err
		}
		payload := make([]byte, n)
		copy(payload, c.buf[start:start+n])
		return Bulk(payload), nil
	case '*':
		n, err := c.arrayLen()
		if err != nil {
			return nil, err
		}
		out := make(Array, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			f, err := c.parse(depth + 1)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag byte %q", ErrInvalid, tag)
	}
}
