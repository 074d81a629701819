package redisserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/protocol/conn"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
	"github.com/yndnr/respkv-go/internal/protocol/parse"
	"github.com/yndnr/respkv-go/internal/storage/memory"
)

// errCloseConn ends the connection without an error once the reply is written.
var errCloseConn = errors.New("close connection")

// Command is a parsed client request.
type Command interface {
	// Name is the lowercase command name used in logs and metrics.
	Name() string
	// Apply executes the command and writes its reply to dst.
	Apply(ctx context.Context, store *memory.Store, dst *conn.Connection, sd *shutdown.Listener) error
}

// CommandError is a request failure reported to the client as an Error
// reply. The connection stays open.
type CommandError struct {
	Msg string
}

func (e *CommandError) Error() string { return e.Msg }

func wrongArity(name string) *CommandError {
	return &CommandError{Msg: "ERR wrong number of arguments for '" + name + "' command"}
}

var (
	errSyntax     = &CommandError{Msg: "ERR syntax error"}
	errNotInteger = &CommandError{Msg: "ERR value is not an integer or out of range"}
)

// FromFrame decodes a request array into a Command.
//
// Arity mistakes and bad option values return a *CommandError carrying the
// reply text; the connection continues. Other errors wrap parse.ErrInvalid
// for a request that is not an array or an argument of the wrong type, and
// end the connection once the reply is written.
func FromFrame(f frame.Frame) (Command, error) {
	p, err := parse.New(f)
	if err != nil {
		return nil, err
	}
	name, err := p.NextString()
	if err != nil {
		if errors.Is(err, parse.ErrEndOfStream) {
			return nil, &CommandError{Msg: "ERR empty command"}
		}
		return nil, err
	}
	lower := strings.ToLower(name)

	var cmd Command
	switch lower {
	case "get":
		cmd, err = parseGet(p)
	case "set":
		cmd, err = parseSet(p)
	case "del":
		cmd, err = parseDel(p)
	case "exists":
		cmd, err = parseExists(p)
	case "ttl":
		cmd, err = parseTTL(p)
	case "publish":
		cmd, err = parsePublish(p)
	case "subscribe":
		cmd, err = parseSubscribe(p)
	case "unsubscribe":
		cmd, err = parseUnsubscribe(p)
	case "ping":
		cmd, err = parsePing(p)
	case "quit":
		cmd = &Quit{}
	default:
		// Remaining arguments are ignored.
		return &Unknown{name: name}, nil
	}
	if err == nil {
		err = p.Finish()
	}
	if err != nil {
		if errors.Is(err, parse.ErrEndOfStream) || errors.Is(err, parse.ErrTrailing) {
			return nil, wrongArity(lower)
		}
		var cerr *CommandError
		if errors.As(err, &cerr) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", lower, err)
	}
	return cmd, nil
}

// nextUint reads an unsigned integer sent either as an Integer or as a
// decimal string.
func nextUint(p *parse.Parse) (uint64, error) {
	f, err := p.Next()
	if err != nil {
		return 0, err
	}
	var s string
	switch v := f.(type) {
	case frame.Integer:
		return uint64(v), nil
	case frame.Bulk:
		s = string(v)
	case frame.Simple:
		s = string(v)
	default:
		return 0, fmt.Errorf("%w: expected integer, got %s", parse.ErrInvalid, frame.Kind(f))
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	return n, nil
}

// Ping replies PONG, or echoes its argument.
type Ping struct {
	Msg []byte
}

func parsePing(p *parse.Parse) (*Ping, error) {
	if p.Remaining() == 0 {
		return &Ping{}, nil
	}
	msg, err := p.NextBytes()
	if err != nil {
		return nil, err
	}
	return &Ping{Msg: msg}, nil
}

func (c *Ping) Name() string { return "ping" }

func (c *Ping) Apply(_ context.Context, _ *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	if c.Msg == nil {
		return dst.WriteFrame(frame.Simple("PONG"))
	}
	return dst.WriteFrame(frame.Bulk(c.Msg))
}

// Quit replies OK and closes the connection.
type Quit struct{}

func (c *Quit) Name() string { return "quit" }

func (c *Quit) Apply(_ context.Context, _ *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	if err := dst.WriteFrame(frame.Simple("OK")); err != nil {
		return err
	}
	return errCloseConn
}

// Unknown is any command the server does not implement.
type Unknown struct {
	name string
}

func (c *Unknown) Name() string { return "unknown" }

func (c *Unknown) Apply(_ context.Context, _ *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	return dst.WriteFrame(frame.Error("ERR unknown command '" + oneLine(c.name) + "'"))
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// oneLine makes client text safe to embed in a Simple or Error reply.
func oneLine(s string) string {
	return lineBreaks.Replace(s)
}
