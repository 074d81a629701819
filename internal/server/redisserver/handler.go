package redisserver

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/protocol/conn"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
	"github.com/yndnr/respkv-go/internal/protocol/parse"
	"github.com/yndnr/respkv-go/internal/storage/memory"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
	"github.com/yndnr/respkv-go/internal/telemetry/metric"
)

// Handler serves the requests of one client connection.
type Handler struct {
	store    *memory.Store
	conn     *conn.Connection
	shutdown *shutdown.Listener
	limiter  *rate.Limiter
	metrics  *metric.Registry
}

// Run processes frames until the client disconnects, sends QUIT, breaks the
// protocol or the server shuts down. Only I/O and protocol failures are
// returned. A malformed frame or a request of the wrong shape gets an Error
// reply before the connection closes.
func (h *Handler) Run(ctx context.Context) error {
	for !h.shutdown.IsShutdown() {
		f, err := h.conn.ReadFrame(h.shutdown.Context())
		if err != nil {
			if h.shutdown.Poll() {
				return nil
			}
			return h.reject(err)
		}
		if f == nil {
			return nil
		}

		if err := h.dispatch(ctx, f); err != nil {
			if errors.Is(err, errCloseConn) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (h *Handler) dispatch(ctx context.Context, f frame.Frame) error {
	start := time.Now()

	cmd, err := FromFrame(f)
	if err != nil {
		logger.L(ctx).Debug("rejected request", "error", err)
		h.metrics.ObserveCommand("invalid", metric.StatusError, time.Since(start))
		if isFatal(err) {
			return h.reject(err)
		}
		return h.conn.WriteFrame(errorFrame(err))
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.metrics.RateLimited.Inc()
		h.metrics.ObserveCommand(cmd.Name(), metric.StatusError, time.Since(start))
		return h.conn.WriteFrame(frame.Error("ERR rate limit exceeded"))
	}

	err = cmd.Apply(ctx, h.store, h.conn, h.shutdown)

	status := metric.StatusOK
	if _, unknown := cmd.(*Unknown); unknown || (err != nil && !errors.Is(err, errCloseConn)) {
		status = metric.StatusError
	}
	// Subscribe mode lasts as long as the connection and is not a latency sample.
	if _, sub := cmd.(*Subscribe); sub {
		h.metrics.CommandsTotal.WithLabelValues(cmd.Name(), status).Inc()
	} else {
		h.metrics.ObserveCommand(cmd.Name(), status, time.Since(start))
	}
	return h.reject(err)
}

// reject writes the Error reply for a malformed request and returns err so
// the connection closes. Other errors pass through untouched.
func (h *Handler) reject(err error) error {
	if !isFatal(err) {
		return err
	}
	h.metrics.ProtocolErrors.Inc()
	_ = h.conn.WriteFrame(errorFrame(err))
	return err
}

// isFatal reports whether err is a framing error or a request of the wrong
// shape. Both end the connection.
func isFatal(err error) bool {
	return errors.Is(err, conn.ErrProtocol) || errors.Is(err, parse.ErrInvalid)
}
