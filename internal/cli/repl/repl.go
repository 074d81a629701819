package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

// Executor sends one command and returns the reply.
// *connection.Client implements it.
type Executor interface {
	Do(ctx context.Context, args ...string) (frame.Frame, error)
}

// keywords are handled by the REPL itself.
var keywords = map[string]string{
	"help":    "[prefix]  list commands",
	"history": "          show input history",
	"clear":   "          clear the screen",
	"exit":    "          leave the REPL",
	"quit":    "          leave the REPL",
}

// errExit ends Run without error.
var errExit = errors.New("exit")

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	exec      Executor
	input     io.Reader
	output    io.Writer
	formatter output.Formatter
	completer *Completer
	history   *History
	prompt    string
	timeout   time.Duration
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// WithFormatter sets how replies are printed.
func WithFormatter(f output.Formatter) Option {
	return func(r *REPL) { r.formatter = f }
}

// WithPrompt sets the prompt text.
func WithPrompt(p string) Option {
	return func(r *REPL) { r.prompt = p }
}

// WithTimeout bounds each command. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(r *REPL) { r.timeout = d }
}

// New creates a REPL that runs commands through exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		exec:      exec,
		input:     os.Stdin,
		output:    os.Stdout,
		formatter: &output.TextFormatter{},
		completer: NewCompleter(),
		history:   NewHistory("", 0),
		prompt:    "respkv> ",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF, exit or ctx is done. A transport error ends
// the loop, since the connection is no longer usable.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.input)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.output)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.history.Add(line)

		err := r.execute(ctx, line)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "(error) Invalid argument(s): %v\n", err)
		return nil
	}
	if len(args) == 0 {
		return nil
	}

	name := strings.ToLower(args[0])
	if _, ok := keywords[name]; ok {
		return r.builtin(name, args[1:])
	}
	if name == "subscribe" {
		fmt.Fprintln(r.output, "(error) subscribe mode is not available here; use `respkv-cli subscribe`")
		return nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	reply, err := r.exec.Do(ctx, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToUpper(name), err)
	}
	if err := r.formatter.Format(r.output, reply); err != nil {
		return err
	}
	if e, ok := reply.(frame.Error); ok && strings.HasPrefix(string(e), "ERR unknown command") {
		if hints := r.completer.Complete(args[0][:1]); len(hints) > 0 {
			fmt.Fprintf(r.output, "(hint) known commands: %s\n", strings.Join(hints, ", "))
		}
	}
	return nil
}

func (r *REPL) builtin(name string, args []string) error {
	switch name {
	case "exit", "quit":
		return errExit
	case "clear":
		fmt.Fprint(r.output, "\033[H\033[2J")
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%5d  %s\n", i+1, entry)
		}
	case "help":
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}
		for _, cmd := range r.completer.Complete(prefix) {
			if usage, ok := Usage[cmd]; ok {
				fmt.Fprintf(r.output, "  %-12s %s\n", cmd, usage)
			} else {
				fmt.Fprintf(r.output, "  %-12s %s\n", cmd, keywords[cmd])
			}
		}
	}
	return nil
}
