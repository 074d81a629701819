// Package parse walks the elements of a request array with typed extraction.
//
// Command constructors pull exactly the arguments they expect, in order, and
// then call Finish, which checks both argument types and arity in one pass.
package parse

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

var (
	// ErrEndOfStream is returned when a command needs more arguments than it got.
	ErrEndOfStream = errors.New("protocol error: unexpected end of stream")

	// ErrInvalid is returned for an argument of the wrong shape or a trailing argument.
	ErrInvalid = errors.New("protocol error: invalid argument")

	// ErrTrailing is the ErrInvalid returned by Finish.
	ErrTrailing = fmt.Errorf("%w: unexpected trailing argument", ErrInvalid)
)

// Parse is a forward-only cursor over the elements of an Array frame.
type Parse struct {
	parts []frame.Frame
	pos   int
}

// New returns a cursor over f, which must be an Array.
func New(f frame.Frame) (*Parse, error) {
	arr, ok := f.(frame.Array)
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrInvalid, frame.Kind(f))
	}
	return &Parse{parts: arr}, nil
}

// Next returns the next element.
func (p *Parse) Next() (frame.Frame, error) {
	if p.pos >= len(p.parts) {
		return nil, ErrEndOfStream
	}
	f := p.parts[p.pos]
	p.pos++
	return f, nil
}

// NextString returns the next element as text. Simple and UTF-8 Bulk elements are accepted.
func (p *Parse) NextString() (string, error) {
	f, err := p.Next()
	if err != nil {
		return "", err
	}
	switch v := f.(type) {
	case frame.Simple:
		return string(v), nil
	case frame.Bulk:
		if !utf8.Valid(v) {
			return "", fmt.Errorf("%w: string is not valid UTF-8", ErrInvalid)
		}
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: expected simple or bulk, got %s", ErrInvalid, frame.Kind(f))
	}
}

// NextBytes returns the next element as raw bytes. Simple and Bulk elements are accepted.
func (p *Parse) NextBytes() ([]byte, error) {
	f, err := p.Next()
	if err != nil {
		return nil, err
	}
	switch v := f.(type) {
	case frame.Simple:
		return []byte(v), nil
	case frame.Bulk:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: expected simple or bulk, got %s", ErrInvalid, frame.Kind(f))
	}
}

// NextInt returns the next element, which must be an Integer.
func (p *Parse) NextInt() (uint64, error) {
	f, err := p.Next()
	if err != nil {
		return 0, err
	}
	n, ok := f.(frame.Integer)
	if !ok {
		return 0, fmt.Errorf("%w: expected integer, got %s", ErrInvalid, frame.Kind(f))
	}
	return uint64(n), nil
}

// Remaining returns the number of unconsumed elements.
func (p *Parse) Remaining() int {
	return len(p.parts) - p.pos
}

// Finish fails if any element is left unconsumed.
func (p *Parse) Finish() error {
	if p.pos < len(p.parts) {
		return fmt.Errorf("%w (%d left)", ErrTrailing, len(p.parts)-p.pos)
	}
	return nil
}
