package connection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/frame"
	"github.com/yndnr/respkv-go/internal/server/localserver"
	"github.com/yndnr/respkv-go/internal/server/redisserver"
	"github.com/yndnr/respkv-go/internal/storage/memory"
)

func startServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	store := memory.New()
	srv := redisserver.New(nil, store, redisserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	go func() { _ = srv.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		store.Close()
	})
	return ln.Addr().String()
}

func dialTest(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, Options{DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_KeyValue(t *testing.T) {
	c := dialTest(t, startServer(t))
	ctx := testContext(t)

	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get() = %q, %v, %v", v, ok, err)
	}
	if _, ok, err := c.TTL(ctx, "k"); err != nil || ok {
		t.Errorf("TTL(persistent) = %v, %v", ok, err)
	}

	if err := c.Set(ctx, "t", []byte("x"), 90*time.Second); err != nil {
		t.Fatalf("Set(ttl) error = %v", err)
	}
	ttl, ok, err := c.TTL(ctx, "t")
	if err != nil || !ok || ttl != 90*time.Second {
		t.Errorf("TTL() = %v, %v, %v, want 90s", ttl, ok, err)
	}

	if n, err := c.Exists(ctx, "k", "t", "nope"); err != nil || n != 2 {
		t.Errorf("Exists() = %d, %v, want 2", n, err)
	}
	if n, err := c.Del(ctx, "k", "nope"); err != nil || n != 1 {
		t.Errorf("Del() = %d, %v, want 1", n, err)
	}
}

func TestClient_Ping(t *testing.T) {
	c := dialTest(t, startServer(t))
	ctx := testContext(t)

	if got, err := c.Ping(ctx, ""); err != nil || got != "PONG" {
		t.Errorf("Ping() = %q, %v", got, err)
	}
	if got, err := c.Ping(ctx, "hello"); err != nil || got != "hello" {
		t.Errorf("Ping(hello) = %q, %v", got, err)
	}
}

func TestClient_ServerError(t *testing.T) {
	c := dialTest(t, startServer(t))
	ctx := testContext(t)

	reply, err := c.Do(ctx, "FLUSHALL")
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !frame.Equal(reply, frame.Error("ERR unknown command 'FLUSHALL'")) {
		t.Errorf("Do(FLUSHALL) = %v", reply)
	}

	_, err = c.Del(ctx)
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("Del() error = %v, want *ServerError", err)
	}
	if serr.Msg != "ERR wrong number of arguments for 'del' command" {
		t.Errorf("ServerError = %q", serr.Msg)
	}

	if _, err := c.Ping(ctx, ""); err != nil {
		t.Errorf("connection unusable after error reply: %v", err)
	}
}

func TestClient_Quit(t *testing.T) {
	c := dialTest(t, startServer(t))
	ctx := testContext(t)

	if err := c.Quit(ctx); err != nil {
		t.Fatalf("Quit() error = %v", err)
	}
	if _, err := c.Ping(ctx, ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after Quit = %v, want ErrClosed", err)
	}
}

func TestClient_PublishSubscribe(t *testing.T) {
	addr := startServer(t)
	ctx := testContext(t)

	sub, err := dialTest(t, addr).Subscribe(ctx, "news", "sport")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.Count() != 2 {
		t.Errorf("Count() = %d, want 2", sub.Count())
	}

	pub := dialTest(t, addr)
	if n, err := pub.Publish(ctx, "news", []byte("hello")); err != nil || n != 1 {
		t.Fatalf("Publish() = %d, %v, want 1", n, err)
	}
	if n, err := pub.Publish(ctx, "weather", []byte("rain")); err != nil || n != 0 {
		t.Errorf("Publish(no subscribers) = %d, %v, want 0", n, err)
	}

	msg, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if msg.Channel != "news" || string(msg.Payload) != "hello" {
		t.Errorf("Next() = %+v", msg)
	}

	// Acknowledgements and pongs are skipped by Next.
	if err := sub.Unsubscribe("sport"); err != nil {
		t.Fatal(err)
	}
	if err := sub.Ping(); err != nil {
		t.Fatal(err)
	}
	if _, err := pub.Publish(ctx, "news", []byte("again")); err != nil {
		t.Fatal(err)
	}
	msg, err = sub.Next(ctx)
	if err != nil || string(msg.Payload) != "again" {
		t.Errorf("Next() = %+v, %v", msg, err)
	}
	if sub.Count() != 1 {
		t.Errorf("Count() = %d, want 1", sub.Count())
	}
}

func TestSubscriber_NextHonorsContext(t *testing.T) {
	sub, err := dialTest(t, startServer(t)).Subscribe(testContext(t), "quiet")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() = %v, want DeadlineExceeded", err)
	}
}

func TestClient_SubscribeWithoutChannels(t *testing.T) {
	c := dialTest(t, startServer(t))
	if _, err := c.Subscribe(testContext(t)); err == nil {
		t.Error("Subscribe() without channels should fail")
	}
}

func TestClient_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := Dial(testContext(t), addr, Options{DialTimeout: time.Second}); err == nil {
		t.Error("Dial() to a closed port should fail")
	}
}

func TestClient_Disconnected(t *testing.T) {
	server, client := net.Pipe()
	c := NewClient(client, Options{})
	defer c.Close()

	go func() {
		buf := make([]byte, 64)
		_, _ = server.Read(buf)
		server.Close()
	}()

	if _, err := c.Do(testContext(t), "PING"); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Do() = %v, want ErrDisconnected", err)
	}
}

func TestClient_UnixSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "rkv")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ln, err := localserver.Listen(context.Background(), path)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	store := memory.New()
	srv := redisserver.New(nil, store, redisserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	go func() { _ = srv.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		store.Close()
	})

	addr := "unix://" + path
	c := dialTest(t, addr)
	if c.Addr() != addr {
		t.Errorf("Addr() = %q, want %q", c.Addr(), addr)
	}
	ctx := testContext(t)
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, ok, err := c.Get(ctx, "k"); err != nil || !ok || string(v) != "v" {
		t.Errorf("Get() = %q, %v, %v", v, ok, err)
	}
}

func TestSplitAddr(t *testing.T) {
	tests := []struct {
		addr, network, address string
	}{
		{"127.0.0.1:6379", "tcp", "127.0.0.1:6379"},
		{"unix:///run/respkv.sock", "unix", "/run/respkv.sock"},
		{"localhost:0", "tcp", "localhost:0"},
	}
	for _, tt := range tests {
		network, address := splitAddr(tt.addr)
		if network != tt.network || address != tt.address {
			t.Errorf("splitAddr(%q) = %q, %q", tt.addr, network, address)
		}
	}
}
