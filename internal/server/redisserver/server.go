package redisserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/protocol/conn"
	"github.com/yndnr/respkv-go/internal/storage/memory"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
	"github.com/yndnr/respkv-go/internal/telemetry/metric"
	"github.com/yndnr/respkv-go/pkg/cmap"
)

// Config holds the RESP server configuration.
type Config struct {
	// PlainEnabled enables the plaintext port.
	PlainEnabled bool
	// PlainAddress is the address for the plaintext port.
	PlainAddress string
	// TLSEnabled enables the TLS port.
	TLSEnabled bool
	// TLSAddress is the address for the TLS port.
	TLSAddress string
	// TLSConfig is required if TLSEnabled is true.
	TLSConfig *tls.Config
	// ReadTimeout bounds the rest of a frame once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds each reply.
	WriteTimeout time.Duration
	// IdleTimeout closes connections that send nothing. Subscribers are exempt.
	IdleTimeout time.Duration
	// RateLimit is the number of commands per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit int
	// RateBurst is the bucket size. Zero means RateLimit.
	RateBurst int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PlainEnabled: true,
		PlainAddress: "127.0.0.1:6379",
		TLSEnabled:   false,
		TLSAddress:   "127.0.0.1:6380",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    0,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) {
		if r != nil {
			s.metrics = r
		}
	}
}

// Server accepts RESP connections and runs one Handler per client.
type Server struct {
	cfg     *Config
	store   *memory.Store
	logger  *slog.Logger
	metrics *metric.Registry

	notifier *shutdown.Notifier
	limiters *limiterSet
	conns    *cmap.Map[*conn.Connection]

	mu        sync.Mutex
	listeners []net.Listener

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a server backed by store.
func New(cfg *Config, store *memory.Store, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   slog.Default(),
		notifier: shutdown.NewNotifier(),
		limiters: newLimiterSet(cfg.RateLimit, cfg.RateBurst),
		conns:    cmap.New[*conn.Connection](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metric.NewRegistry()
	}
	return s
}

// Start binds the configured listeners and serves them in the background.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.PlainEnabled && !s.cfg.TLSEnabled {
		s.logger.Info("resp server disabled (both plain and TLS are disabled)")
		return nil
	}

	if s.cfg.PlainEnabled {
		ln, err := net.Listen("tcp", s.cfg.PlainAddress)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.PlainAddress, err)
		}
		s.logger.Info("starting plain resp server", "address", ln.Addr().String())
		s.serveBackground(ctx, ln)
	}

	if s.cfg.TLSEnabled {
		if s.cfg.TLSConfig == nil {
			return errors.New("tls enabled but no TLS config provided")
		}
		ln, err := tls.Listen("tcp", s.cfg.TLSAddress, s.cfg.TLSConfig)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.TLSAddress, err)
		}
		s.logger.Info("starting TLS resp server", "address", ln.Addr().String())
		s.serveBackground(ctx, ln)
	}
	return nil
}

func (s *Server) serveBackground(ctx context.Context, ln net.Listener) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Serve(ctx, ln); err != nil {
			s.logger.Error("accept loop stopped", "address", ln.Addr().String(), "error", err)
		}
	}()
}

// Serve accepts connections on ln until Shutdown is called, ctx is
// cancelled or Accept fails. Cancelling ctx also signals every connection
// handler to stop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.running.Store(true)
	s.track(ln)

	stop := context.AfterFunc(ctx, func() {
		s.notifier.Notify()
		_ = ln.Close()
	})
	defer stop()

	return s.acceptLoop(ctx, ln)
}

func (s *Server) track(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, ln)
}

// Addr returns the address of the first listener, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

// ConnCount returns the number of live client connections.
func (s *Server) ConnCount() int {
	return s.conns.Count()
}

// Shutdown stops accepting, signals every handler and waits for them to
// return. If ctx expires first, the remaining connections are closed
// forcibly and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	s.notifier.Notify()

	var errs []error
	s.mu.Lock()
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.conns.Range(func(_ string, c *conn.Connection) bool {
			_ = c.Close()
			return true
		})
		return ctx.Err()
	}
	return errors.Join(errs...)
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, c)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	id := ulid.Make().String()
	c := conn.New(nc, id, conn.Options{
		IdleTimeout:  s.cfg.IdleTimeout,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	})
	defer c.Close()

	s.conns.Set(id, c)
	defer s.conns.Delete(id)

	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	ip := clientIP(nc.RemoteAddr())
	limiter := s.limiters.acquire(ip)
	defer s.limiters.release(ip)

	log := logger.FromSlog(s.logger).With("remote", nc.RemoteAddr().String())
	ctx = logger.WithConnID(logger.WithLogger(ctx, log), id)
	logger.L(ctx).Debug("connection accepted")

	h := &Handler{
		store:    s.store,
		conn:     c,
		shutdown: s.notifier.Subscribe(),
		limiter:  limiter,
		metrics:  s.metrics,
	}
	if err := h.Run(ctx); err != nil {
		if isTimeout(err) {
			logger.L(ctx).Debug("connection timed out")
			return
		}
		logger.L(ctx).Warn("connection error", "error", err)
		return
	}
	logger.L(ctx).Debug("connection closed")
}
