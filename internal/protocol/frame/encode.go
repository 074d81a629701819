package frame

import (
	"bufio"
	"fmt"
	"strconv"
)

// Append appends the wire encoding of f to dst.
func Append(dst []byte, f Frame) []byte {
	switch v := f.(type) {
	case Simple:
		return appendLine(append(dst, '+'), string(v))
	case Error:
		return appendLine(append(dst, '-'), string(v))
	case Integer:
		dst = append(dst, ':')
		dst = strconv.AppendUint(dst, uint64(v), 10)
		return append(dst, '\r', '\n')
	case Bulk:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, v...)
		return append(dst, '\r', '\n')
	case Null:
		return append(dst, "$-1\r\n"...)
	case Array:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v)), 10)
		dst = append(dst, '\r', '\n')
		for _, elem := range v {
			dst = Append(dst, elem)
		}
		return dst
	case *Array:
		return Append(dst, *v)
	default:
		panic(fmt.Sprintf("frame: cannot encode %T", f))
	}
}

// appendLine appends s and the CRLF terminator. A CR or LF inside s would end
// the line early, so each one is written as a space.
func appendLine(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\r' || c == '\n' {
			dst = append(dst, ' ')
		} else {
			dst = append(dst, c)
		}
	}
	return append(dst, '\r', '\n')
}

// Write encodes f into w. The caller flushes.
func Write(w *bufio.Writer, f Frame) error {
	switch v := f.(type) {
	case Bulk:
		// Large payloads go straight to the writer instead of a scratch copy.
		var hdr [24]byte
		b := append(hdr[:0], '$')
		b = strconv.AppendInt(b, int64(len(v)), 10)
		b = append(b, '\r', '\n')
		if _, err := w.Write(b); err != nil {
			return err
		}
		if _, err := w.Write(v); err != nil {
			return err
		}
		_, err := w.WriteString("\r\n")
		return err
	case Array:
		var hdr [24]byte
		b := append(hdr[:0], '*')
		b = strconv.AppendInt(b, int64(len(v)), 10)
		b = append(b, '\r', '\n')
		if _, err := w.Write(b); err != nil {
			return err
		}
		for _, elem := range v {
			if err := Write(w, elem); err != nil {
				return err
			}
		}
		return nil
	case *Array:
		return Write(w, *v)
	default:
		var scratch [64]byte
		_, err := w.Write(Append(scratch[:0], f))
		return err
	}
}
