package repl

import (
	"sort"
	"strings"
)

// Usage lists the server commands with their argument syntax.
var Usage = map[string]string{
	"GET":         "key",
	"SET":         "key value [EX seconds | PX milliseconds]",
	"DEL":         "key [key ...]",
	"EXISTS":      "key [key ...]",
	"TTL":         "key",
	"PUBLISH":     "channel message",
	"SUBSCRIBE":   "channel [channel ...]",
	"UNSUBSCRIBE": "[channel ...]",
	"PING":        "[message]",
	"QUIT":        "",
}

// Completer suggests command names for a prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the server commands and the REPL
// keywords.
func NewCompleter() *Completer {
	commands := make([]string, 0, len(Usage)+len(keywords))
	for name := range Usage {
		commands = append(commands, name)
	}
	for name := range keywords {
		if _, ok := Usage[strings.ToUpper(name)]; !ok {
			commands = append(commands, name)
		}
	}
	sort.Strings(commands)
	return &Completer{commands: commands}
}

// Complete returns the commands starting with prefix, ignoring case.
// Server commands come back upper case, keywords lower case.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(strings.ToLower(cmd), strings.ToLower(prefix)) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Commands returns every known command.
func (c *Completer) Commands() []string {
	return append([]string(nil), c.commands...)
}
