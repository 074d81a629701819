package conn

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

func newPipe(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	c := New(server, "test", Options{})
	t.Cleanup(func() {
		_ = c.Close()
		_ = client.Close()
	})
	return c, client
}

func writeChunks(t *testing.T, w net.Conn, chunks ...string) {
	t.Helper()
	go func() {
		for _, chunk := range chunks {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}()
}

func TestReadFrame_Whole(t *testing.T) {
	c, client := newPipe(t)
	writeChunks(t, client, "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")

	f, err := c.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame() error: %v", err)
	}
	want := frame.Array{frame.Bulk("GET"), frame.Bulk("foo")}
	if !frame.Equal(f, want) {
		t.Errorf("ReadFrame() = %v, want %v", f, want)
	}
	if c.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", c.Buffered())
	}
}

func TestReadFrame_IncrementalDelivery(t *testing.T) {
	encoded := "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$5\r\nhello\r\n"
	want := frame.Array{frame.Bulk("SET"), frame.Bulk("foo"), frame.Bulk("hello")}

	for split := 1; split < len(encoded); split++ {
		c, client := newPipe(t)
		writeChunks(t, client, encoded[:split], encoded[split:])

		f, err := c.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("split %d: ReadFrame() error: %v", split, err)
		}
		if !frame.Equal(f, want) {
			t.Fatalf("split %d: ReadFrame() = %v, want %v", split, f, want)
		}
	}
}

func TestReadFrame_ByteAtATime(t *testing.T) {
	c, client := newPipe(t)
	encoded := "+OK\r\n:12\r\n$-1\r\n"
	chunks := strings.Split(encoded, "")
	writeChunks(t, client, chunks...)

	for _, want := range []frame.Frame{frame.Simple("OK"), frame.Integer(12), frame.Null{}} {
		f, err := c.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("ReadFrame() error: %v", err)
		}
		if !frame.Equal(f, want) {
			t.Errorf("ReadFrame() = %v, want %v", f, want)
		}
	}
}

func TestReadFrame_Pipelined(t *testing.T) {
	c, client := newPipe(t)
	writeChunks(t, client, "+A\r\n+B\r\n+C\r\n")

	for _, want := range []string{"A", "B", "C"} {
		f, err := c.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("ReadFrame() error: %v", err)
		}
		if !frame.Equal(f, frame.Simple(want)) {
			t.Errorf("ReadFrame() = %v, want %s", f, want)
		}
	}
}

func TestReadFrame_LargeBulkGrowsBuffer(t *testing.T) {
	c, client := newPipe(t)
	payload := strings.Repeat("x", 3*initialBufferSize)
	writeChunks(t, client, "$12288\r\n"+payload+"\r\n")

	f, err := c.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame() error: %v", err)
	}
	if b, ok := f.(frame.Bulk); !ok || len(b) != len(payload) {
		t.Errorf("ReadFrame() returned %s of unexpected size", frame.Kind(f))
	}
}

func TestReadFrame_CleanEOF(t *testing.T) {
	c, client := newPipe(t)
	_ = client.Close()

	f, err := c.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame() error: %v", err)
	}
	if f != nil {
		t.Errorf("ReadFrame() = %v, want nil", f)
	}
}

func TestReadFrame_EOFMidFrame(t *testing.T) {
	c, client := newPipe(t)
	go func() {
		_, _ = client.Write([]byte("$5\r\nhel"))
		_ = client.Close()
	}()

	_, err := c.ReadFrame(context.Background())
	if !errors.Is(err, ErrConnectionReset) {
		t.Fatalf("ReadFrame() error = %v, want ErrConnectionReset", err)
	}
}

func TestReadFrame_Invalid(t *testing.T) {
	c, client := newPipe(t)
	writeChunks(t, client, "?garbage\r\n")

	_, err := c.ReadFrame(context.Background())
	if !errors.Is(err, ErrProtocol) || !errors.Is(err, frame.ErrInvalid) {
		t.Fatalf("ReadFrame() error = %v, want protocol/invalid", err)
	}
}

func TestReadFrame_Cancel(t *testing.T) {
	c, client := newPipe(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.ReadFrame(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("ReadFrame() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadFrame() did not return after cancel")
	}

	// The connection is still usable after an interrupted read.
	writeChunks(t, client, "+OK\r\n")
	f, err := c.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame() after cancel error: %v", err)
	}
	if !frame.Equal(f, frame.Simple("OK")) {
		t.Errorf("ReadFrame() = %v, want OK", f)
	}
}

func TestReadFrame_IdleTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := New(server, "idle", Options{IdleTimeout: 20 * time.Millisecond})
	defer c.Close()

	_, err := c.ReadFrame(context.Background())
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("ReadFrame() error = %v, want timeout", err)
	}
}

func TestWriteFrame_RoundTrip(t *testing.T) {
	frames := []frame.Frame{
		frame.Simple("OK"),
		frame.Error("ERR nope"),
		frame.Integer(3),
		frame.Bulk("bar"),
		frame.Null{},
		frame.Array{frame.Bulk("message"), frame.Bulk("news"), frame.Bulk("hi")},
		frame.Array{frame.Array{frame.Integer(1)}, frame.Array{}},
	}

	a, b := net.Pipe()
	writer := New(a, "w", Options{WriteTimeout: time.Second})
	reader := New(b, "r", Options{})
	defer writer.Close()
	defer reader.Close()

	go func() {
		for _, f := range frames {
			if err := writer.WriteFrame(f); err != nil {
				return
			}
		}
	}()

	for _, want := range frames {
		got, err := reader.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("ReadFrame() error: %v", err)
		}
		if !frame.Equal(got, want) {
			t.Errorf("round trip = %v, want %v", got, want)
		}
	}
}

func TestWriteFrame_Bytes(t *testing.T) {
	c, client := newPipe(t)
	go func() { _ = c.WriteFrame(frame.Bulk("bar")) }()

	buf := make([]byte, len("$3\r\nbar\r\n"))
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("ReadFull() error: %v", err)
	}
	if string(buf) != "$3\r\nbar\r\n" {
		t.Errorf("wire bytes = %q", buf)
	}
}

func TestClose_Idempotent(t *testing.T) {
	c, _ := newPipe(t)
	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}
