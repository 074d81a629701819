// Package frame implements the RESP wire value type.
//
// A Frame is one of Simple, Error, Integer, Bulk, Null or Array. Decoding
// happens in two passes: Check validates that a complete frame is buffered
// without allocating, and Parse materializes it.
package frame

import (
	"bytes"
	"strconv"
	"strings"
)

// Frame is a single RESP value.
type Frame interface {
	// String returns a human-readable rendering for logs and errors.
	String() string

	frame()
}

// Simple is a short status string that never contains CR or LF. The
// encoders write a stray CR or LF as a space.
type Simple string

// Error is an error reply. Like Simple it is a single line.
type Error string

// Integer is an unsigned numeric reply.
type Integer uint64

// Bulk is a length-prefixed binary payload.
type Bulk []byte

// Null marks absence. It is distinct from an empty Bulk.
type Null struct{}

// Array is an ordered sequence of frames.
type Array []Frame

func (Simple) frame()  {}
func (Error) frame()   {}
func (Integer) frame() {}
func (Bulk) frame()    {}
func (Null) frame()    {}
func (Array) frame()   {}

func (s Simple) String() string  { return string(s) }
func (e Error) String() string   { return "error: " + string(e) }
func (i Integer) String() string { return strconv.FormatUint(uint64(i), 10) }
func (b Bulk) String() string    { return strconv.Quote(string(b)) }
func (Null) String() string      { return "(nil)" }

func (a Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// NewArray returns an empty array ready for Push calls.
func NewArray() *Array {
	a := make(Array, 0, 4)
	return &a
}

// PushBulk appends a Bulk element.
func (a *Array) PushBulk(b []byte) {
	*a = append(*a, Bulk(b))
}

// PushString appends s as a Bulk element.
func (a *Array) PushString(s string) {
	*a = append(*a, Bulk(s))
}

// PushInt appends an Integer element.
func (a *Array) PushInt(n uint64) {
	*a = append(*a, Integer(n))
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Frame) bool {
	switch x := a.(type) {
	case Simple:
		y, ok := b.(Simple)
		return ok && x == y
	case Error:
		y, ok := b.(Error)
		return ok && x == y
	case Integer:
		y, ok := b.(Integer)
		return ok && x == y
	case Bulk:
		y, ok := b.(Bulk)
		return ok && bytes.Equal(x, y)
	case Null:
		_, ok := b.(Null)
		return ok
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// Kind returns a short type name used in error messages.
func Kind(f Frame) string {
	switch f.(type) {
	case Simple:
		return "simple"
	case Error:
		return "error"
	case Integer:
		return "integer"
	case Bulk:
		return "bulk"
	case Null:
		return "null"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}
