package connection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv-go/internal/protocol/conn"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

var (
	// ErrClosed is returned by calls on a closed client.
	ErrClosed = errors.New("connection: client closed")

	// ErrDisconnected is returned when the server closes the connection
	// before replying.
	ErrDisconnected = errors.New("connection: server closed the connection")

	// ErrUnexpectedReply is returned when a reply has the wrong shape.
	ErrUnexpectedReply = errors.New("connection: unexpected reply")
)

// ServerError is an Error reply from the server.
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string { return e.Msg }

// Options configures Dial.
type Options struct {
	// TLS enables TLS when non-nil.
	TLS *tls.Config
	// DialTimeout bounds connection setup. Zero means no limit beyond ctx.
	DialTimeout time.Duration
	// WriteTimeout bounds each request write.
	WriteTimeout time.Duration
}

// Client is a single RESP connection.
type Client struct {
	addr string
	conn *conn.Connection

	mu     sync.Mutex
	closed atomic.Bool
}

// Dial connects to addr, either host:port or unix:///path/to/socket.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	network, address := splitAddr(addr)
	d := &net.Dialer{Timeout: opts.DialTimeout}
	var (
		nc  net.Conn
		err error
	)
	if opts.TLS != nil {
		td := &tls.Dialer{NetDialer: d, Config: opts.TLS}
		nc, err = td.DialContext(ctx, network, address)
	} else {
		nc, err = d.DialContext(ctx, network, address)
	}
	if err != nil {
		return nil, fmt.Errorf("connection: dial %s: %w", addr, err)
	}
	c := NewClient(nc, opts)
	if network == "unix" {
		c.addr = addr
	}
	return c, nil
}

func splitAddr(addr string) (network, address string) {
	if path, ok := strings.CutPrefix(addr, "unix://"); ok {
		return "unix", path
	}
	return "tcp", addr
}

// NewClient wraps an established connection.
func NewClient(nc net.Conn, opts Options) *Client {
	return &Client{
		addr: nc.RemoteAddr().String(),
		conn: conn.New(nc, ulid.Make().String(), conn.Options{WriteTimeout: opts.WriteTimeout}),
	}
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends one command and returns the raw reply. Error replies are
// returned as frames, not as Go errors.
func (c *Client) Do(ctx context.Context, args ...string) (frame.Frame, error) {
	req := frame.NewArray()
	for _, a := range args {
		req.PushString(a)
	}
	return c.roundTrip(ctx, req)
}

// DoBytes is Do with binary arguments.
func (c *Client) DoBytes(ctx context.Context, args ...[]byte) (frame.Frame, error) {
	req := frame.NewArray()
	for _, a := range args {
		req.PushBulk(a)
	}
	return c.roundTrip(ctx, req)
}

func (c *Client) roundTrip(ctx context.Context, req *frame.Array) (frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := c.conn.WriteFrame(req); err != nil {
		return nil, err
	}
	return c.read(ctx)
}

func (c *Client) read(ctx context.Context) (frame.Frame, error) {
	f, err := c.conn.ReadFrame(ctx)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrDisconnected
	}
	return f, nil
}

// Get returns the value of key and whether it exists.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.Do(ctx, "GET", key)
	if err != nil {
		return nil, false, err
	}
	switch r := reply.(type) {
	case frame.Bulk:
		return []byte(r), true, nil
	case frame.Null:
		return nil, false, nil
	}
	return nil, false, replyError(reply)
}

// Set stores value under key. A positive ttl is sent as PX milliseconds.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := [][]byte{[]byte("SET"), []byte(key), value}
	if ttl > 0 {
		ms := ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		args = append(args, []byte("PX"), []byte(strconv.FormatInt(ms, 10)))
	}
	reply, err := c.DoBytes(ctx, args...)
	if err != nil {
		return err
	}
	if s, ok := reply.(frame.Simple); ok && s == "OK" {
		return nil
	}
	return replyError(reply)
}

// Del removes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (uint64, error) {
	return c.intCommand(ctx, "DEL", keys...)
}

// Exists returns how many of keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (uint64, error) {
	return c.intCommand(ctx, "EXISTS", keys...)
}

// TTL returns the remaining time to live of key in whole seconds. ok is
// false when the key is missing or has no expiry.
func (c *Client) TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error) {
	reply, err := c.Do(ctx, "TTL", key)
	if err != nil {
		return 0, false, err
	}
	switch r := reply.(type) {
	case frame.Integer:
		return time.Duration(r) * time.Second, true, nil
	case frame.Null:
		return 0, false, nil
	}
	return 0, false, replyError(reply)
}

// Publish sends msg to channel and returns how many subscribers accepted it.
func (c *Client) Publish(ctx context.Context, channel string, msg []byte) (uint64, error) {
	reply, err := c.DoBytes(ctx, []byte("PUBLISH"), []byte(channel), msg)
	if err != nil {
		return 0, err
	}
	if n, ok := reply.(frame.Integer); ok {
		return uint64(n), nil
	}
	return 0, replyError(reply)
}

// Ping checks the connection. A non-empty msg is echoed back.
func (c *Client) Ping(ctx context.Context, msg string) (string, error) {
	args := []string{"PING"}
	if msg != "" {
		args = append(args, msg)
	}
	reply, err := c.Do(ctx, args...)
	if err != nil {
		return "", err
	}
	switch r := reply.(type) {
	case frame.Simple:
		return string(r), nil
	case frame.Bulk:
		return string(r), nil
	}
	return "", replyError(reply)
}

// Quit asks the server to close the connection, then closes the client.
func (c *Client) Quit(ctx context.Context) error {
	reply, err := c.Do(ctx, "QUIT")
	closeErr := c.Close()
	if err != nil {
		return err
	}
	if _, ok := reply.(frame.Simple); !ok {
		return replyError(reply)
	}
	return closeErr
}

func (c *Client) intCommand(ctx context.Context, verb string, keys ...string) (uint64, error) {
	reply, err := c.Do(ctx, append([]string{verb}, keys...)...)
	if err != nil {
		return 0, err
	}
	if n, ok := reply.(frame.Integer); ok {
		return uint64(n), nil
	}
	return 0, replyError(reply)
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}

func replyError(reply frame.Frame) error {
	if e, ok := reply.(frame.Error); ok {
		return &ServerError{Msg: string(e)}
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedReply, frame.Kind(reply))
}
