package repl

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

type fakeExec struct {
	calls [][]string
	reply func(args []string) (frame.Frame, error)
}

func (f *fakeExec) Do(_ context.Context, args ...string) (frame.Frame, error) {
	f.calls = append(f.calls, args)
	if f.reply != nil {
		return f.reply(args)
	}
	return frame.Simple("OK"), nil
}

func run(t *testing.T, exec *fakeExec, input string, opts ...Option) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithIO(strings.NewReader(input), &out), WithPrompt("> ")}, opts...)
	r := New(exec, opts...)
	err := r.Run(context.Background())
	return out.String(), err
}

func TestREPL_SendsCommands(t *testing.T) {
	exec := &fakeExec{reply: func(args []string) (frame.Frame, error) {
		if strings.EqualFold(args[0], "get") {
			return frame.Bulk("hello world"), nil
		}
		return frame.Simple("OK"), nil
	}}

	out, err := run(t, exec, "SET greeting \"hello world\"\n\n  get greeting  \n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [][]string{{"SET", "greeting", "hello world"}, {"get", "greeting"}}
	if !reflect.DeepEqual(exec.calls, want) {
		t.Errorf("calls = %q, want %q", exec.calls, want)
	}
	if !strings.Contains(out, "OK\n") || !strings.Contains(out, `"hello world"`) {
		t.Errorf("output = %q", out)
	}
}

func TestREPL_Exit(t *testing.T) {
	for _, word := range []string{"exit", "quit", "EXIT"} {
		t.Run(word, func(t *testing.T) {
			exec := &fakeExec{}
			if _, err := run(t, exec, word+"\nPING\n"); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(exec.calls) != 0 {
				t.Errorf("calls after %s = %q", word, exec.calls)
			}
		})
	}
}

func TestREPL_TransportErrorEndsLoop(t *testing.T) {
	boom := errors.New("broken pipe")
	exec := &fakeExec{reply: func([]string) (frame.Frame, error) { return nil, boom }}

	_, err := run(t, exec, "PING\nPING\n")
	if !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want %v", err, boom)
	}
	if len(exec.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(exec.calls))
	}
}

func TestREPL_ErrorReplyContinues(t *testing.T) {
	exec := &fakeExec{reply: func(args []string) (frame.Frame, error) {
		if args[0] == "GETX" {
			return frame.Error("ERR unknown command 'GETX'"), nil
		}
		return frame.Simple("PONG"), nil
	}}

	out, err := run(t, exec, "GETX k\nPING\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "(error) ERR unknown command 'GETX'") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "(hint) known commands: GET") {
		t.Errorf("output = %q, want hint", out)
	}
	if len(exec.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(exec.calls))
	}
}

func TestREPL_Builtins(t *testing.T) {
	exec := &fakeExec{}
	h := NewHistory("", 0)

	out, err := run(t, exec, "help SE\nPING\nhistory\nsubscribe news\n'unclosed\n", WithHistory(h))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{
		"SET", "key value [EX seconds | PX milliseconds]",
		"    1  help SE", "    2  PING",
		"subscribe mode is not available",
		"Invalid argument(s): unbalanced quotes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !reflect.DeepEqual(exec.calls, [][]string{{"PING"}}) {
		t.Errorf("calls = %q, want only PING", exec.calls)
	}
	if h.Len() != 5 {
		t.Errorf("history Len() = %d, want 5", h.Len())
	}
}

func TestREPL_JSONFormatter(t *testing.T) {
	exec := &fakeExec{reply: func([]string) (frame.Frame, error) { return frame.Integer(2), nil }}

	out, err := run(t, exec, "DEL a b\n", WithFormatter(&output.JSONFormatter{Compact: true}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "> 2\n") {
		t.Errorf("output = %q", out)
	}
}

func TestREPL_StopsOnCancelledContext(t *testing.T) {
	exec := &fakeExec{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(exec, WithIO(strings.NewReader("PING\n"), &bytes.Buffer{}))
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("calls = %q, want none", exec.calls)
	}
}
