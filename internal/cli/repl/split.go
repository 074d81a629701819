package repl

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnbalancedQuotes is returned by SplitArgs for an unterminated quote.
var ErrUnbalancedQuotes = errors.New("unbalanced quotes")

// SplitArgs splits a line on whitespace. Double-quoted arguments accept Go
// escape sequences such as \n and \x00; single-quoted arguments are taken
// literally apart from \'. A quoted argument must be followed by
// whitespace or the end of the line.
func SplitArgs(line string) ([]string, error) {
	var args []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i == len(line) {
			return args, nil
		}

		var arg string
		switch line[i] {
		case '"':
			end := i + 1
			for ; end < len(line); end++ {
				if line[end] == '\\' {
					end++
					continue
				}
				if line[end] == '"' {
					break
				}
			}
			if end >= len(line) {
				return nil, ErrUnbalancedQuotes
			}
			s, err := strconv.Unquote(line[i : end+1])
			if err != nil {
				return nil, err
			}
			arg, i = s, end+1
		case '\'':
			var b strings.Builder
			end := i + 1
			for ; end < len(line); end++ {
				if line[end] == '\\' && end+1 < len(line) && line[end+1] == '\'' {
					b.WriteByte('\'')
					end++
					continue
				}
				if line[end] == '\'' {
					break
				}
				b.WriteByte(line[end])
			}
			if end >= len(line) {
				return nil, ErrUnbalancedQuotes
			}
			arg, i = b.String(), end+1
		default:
			start := i
			for i < len(line) && !isSpace(line[i]) {
				i++
			}
			args = append(args, line[start:i])
			continue
		}
		if i < len(line) && !isSpace(line[i]) {
			return nil, errors.New("closing quote must be followed by a space")
		}
		args = append(args, arg)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
