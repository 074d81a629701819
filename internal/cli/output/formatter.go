package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formatter formats data for output.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// ParseFormat validates a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// NewFormatter creates a formatter for the given format. Unknown formats
// fall back to text.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// ErrorValue is how an Error reply appears in json and yaml output.
type ErrorValue struct {
	Error string `json:"error" yaml:"error"`
}

// Value converts a reply into plain data: Simple and valid UTF-8 Bulk
// become strings, other Bulk payloads stay []byte, Integer becomes uint64,
// Null becomes nil, Error becomes ErrorValue and Array becomes []any.
// Anything that is not a frame is returned unchanged.
func Value(data any) any {
	f, ok := data.(frame.Frame)
	if !ok {
		return data
	}
	switch v := f.(type) {
	case frame.Simple:
		return string(v)
	case frame.Error:
		return ErrorValue{Error: string(v)}
	case frame.Integer:
		return uint64(v)
	case frame.Bulk:
		if utf8.Valid(v) {
			return string(v)
		}
		return []byte(v)
	case frame.Null:
		return nil
	case frame.Array:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Value(item)
		}
		return out
	}
	return data
}
