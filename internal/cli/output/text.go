package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

// TextFormatter prints replies in redis-cli style and everything else as
// a table or with fmt.
type TextFormatter struct{}

// Format writes data followed by a newline.
func (f *TextFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case frame.Frame:
		_, err := io.WriteString(w, FormatReply(v)+"\n")
		return err
	case *Table:
		return v.Render(w)
	case Table:
		return v.Render(w)
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	}
	table, err := toTable(data)
	if err != nil {
		_, err = fmt.Fprintf(w, "%v\n", data)
		return err
	}
	return table.Render(w)
}

// FormatReply renders a reply without a trailing newline.
func FormatReply(f frame.Frame) string {
	var b strings.Builder
	writeReply(&b, f, "")
	return b.String()
}

func writeReply(b *strings.Builder, f frame.Frame, indent string) {
	switch v := f.(type) {
	case frame.Simple:
		b.WriteString(string(v))
	case frame.Error:
		b.WriteString("(error) ")
		b.WriteString(string(v))
	case frame.Integer:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	case frame.Bulk:
		b.WriteString(strconv.Quote(string(v)))
	case frame.Null:
		b.WriteString("(nil)")
	case frame.Array:
		if len(v) == 0 {
			b.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(v)))
		for i, item := range v {
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				b.WriteByte('\n')
				b.WriteString(indent)
			}
			b.WriteString(prefix)
			writeReply(b, item, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		b.WriteString(fmt.Sprintf("%v", f))
	}
}
