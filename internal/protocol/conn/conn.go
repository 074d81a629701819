// Package conn turns a byte stream into RESP frames and back.
package conn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

const initialBufferSize = 4 * 1024

var (
	// ErrConnectionReset is returned when the peer closes mid-frame.
	ErrConnectionReset = errors.New("connection reset by peer")

	// ErrProtocol wraps decoder failures that are fatal for the connection.
	ErrProtocol = errors.New("protocol error")
)

// aLongTimeAgo is a deadline that unblocks pending reads immediately.
var aLongTimeAgo = time.Unix(1, 0)

// Options configures deadlines. Zero values disable the corresponding deadline.
type Options struct {
	// IdleTimeout bounds the wait for the first byte of the next frame.
	IdleTimeout time.Duration
	// ReadTimeout bounds the wait for the rest of a partially received frame.
	ReadTimeout time.Duration
	// WriteTimeout bounds each flush.
	WriteTimeout time.Duration
}

// Connection reads and writes frames on a net.Conn.
//
// ReadFrame and WriteFrame may be used from different goroutines, but each
// must have a single caller at a time.
type Connection struct {
	netConn net.Conn
	bw      *bufio.Writer
	buf     []byte
	id      string
	opts    Options
	closed  atomic.Bool
}

// New wraps c. id identifies the connection in logs and may be empty.
func New(c net.Conn, id string, opts Options) *Connection {
	return &Connection{
		netConn: c,
		bw:      bufio.NewWriter(c),
		buf:     make([]byte, 0, initialBufferSize),
		id:      id,
		opts:    opts,
	}
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Buffered returns the number of bytes read but not yet decoded.
func (c *Connection) Buffered() int {
	return len(c.buf)
}

// ReadFrame returns the next frame. It returns (nil, nil) when the peer
// closed the stream cleanly between frames. Cancelling ctx interrupts a
// pending read; bytes already buffered are kept for the next call.
func (c *Connection) ReadFrame(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.netConn.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	for {
		n, err := frame.Check(c.buf)
		switch {
		case err == nil:
			f, _, err := frame.Parse(c.buf[:n])
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
			}
			rest := copy(c.buf, c.buf[n:])
			c.buf = c.buf[:rest]
			return f, nil
		case errors.Is(err, frame.ErrIncomplete):
		default:
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}

		if err := c.fill(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				if len(c.buf) == 0 {
					return nil, nil
				}
				return nil, ErrConnectionReset
			}
			return nil, err
		}
	}
}

// fill reads at least one more byte into the buffer.
func (c *Connection) fill(ctx context.Context) error {
	timeout := c.opts.IdleTimeout
	if len(c.buf) > 0 {
		timeout = c.opts.ReadTimeout
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.netConn.SetReadDeadline(deadline); err != nil {
		return err
	}
	// A cancel that raced the deadline reset above must still win.
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(c.buf) == cap(c.buf) {
		grown := make([]byte, len(c.buf), 2*cap(c.buf))
		copy(grown, c.buf)
		c.buf = grown
	}

	n, err := c.netConn.Read(c.buf[len(c.buf):cap(c.buf)])
	c.buf = c.buf[:len(c.buf)+n]
	if n > 0 {
		return nil
	}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// WriteFrame encodes f and flushes it to the peer.
func (c *Connection) WriteFrame(f frame.Frame) error {
	if c.opts.WriteTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	if err := frame.Write(c.bw, f); err != nil {
		return err
	}
	return c.bw.Flush()
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}
