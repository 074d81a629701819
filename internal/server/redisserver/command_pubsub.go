package redisserver

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/protocol/conn"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
	"github.com/yndnr/respkv-go/internal/protocol/parse"
	"github.com/yndnr/respkv-go/internal/storage/memory"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
)

// Publish sends a message to a channel.
type Publish struct {
	Channel string
	Message []byte
}

func parsePublish(p *parse.Parse) (*Publish, error) {
	ch, err := p.NextString()
	if err != nil {
		return nil, err
	}
	msg, err := p.NextBytes()
	if err != nil {
		return nil, err
	}
	return &Publish{Channel: ch, Message: msg}, nil
}

func (c *Publish) Name() string { return "publish" }

func (c *Publish) Apply(_ context.Context, store *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	n := store.Publish(c.Channel, c.Message)
	return dst.WriteFrame(frame.Integer(n))
}

// Subscribe puts the connection in subscribe mode. It stays there until the
// client disconnects, sends QUIT or the server shuts down.
type Subscribe struct {
	Channels []string
}

func parseSubscribe(p *parse.Parse) (*Subscribe, error) {
	channels, err := nextKeys(p)
	if err != nil {
		return nil, err
	}
	return &Subscribe{Channels: channels}, nil
}

func (c *Subscribe) Name() string { return "subscribe" }

func (c *Subscribe) Apply(ctx context.Context, store *memory.Store, dst *conn.Connection, sd *shutdown.Listener) error {
	subs := newSubscriptions(store, dst)
	defer subs.closeAll()

	for _, ch := range c.Channels {
		if err := subs.add(ch); err != nil {
			return err
		}
	}

	readCtx, cancel := context.WithCancel(sd.Context())
	defer cancel()
	requests := readFrames(readCtx, dst)

	for {
		select {
		case m := <-subs.messages:
			if err := dst.WriteFrame(messageFrame(m.channel, m.payload)); err != nil {
				return err
			}
		case r := <-requests:
			if r.err != nil {
				if sd.Poll() {
					return errCloseConn
				}
				return r.err
			}
			if r.f == nil {
				return errCloseConn
			}
			if err := subs.handle(ctx, r.f); err != nil {
				return err
			}
		case <-sd.Done():
			sd.Recv()
			return errCloseConn
		}
	}
}

// Unsubscribe leaves channels. Outside subscribe mode there is nothing to
// leave and every reply reports zero subscriptions.
type Unsubscribe struct {
	Channels []string
}

func parseUnsubscribe(p *parse.Parse) (*Unsubscribe, error) {
	cmd := &Unsubscribe{}
	for p.Remaining() > 0 {
		ch, err := p.NextString()
		if err != nil {
			return nil, err
		}
		cmd.Channels = append(cmd.Channels, ch)
	}
	return cmd, nil
}

func (c *Unsubscribe) Name() string { return "unsubscribe" }

func (c *Unsubscribe) Apply(_ context.Context, _ *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	if len(c.Channels) == 0 {
		return dst.WriteFrame(frame.Array{frame.Bulk("unsubscribe"), frame.Null{}, frame.Integer(0)})
	}
	for _, ch := range c.Channels {
		if err := dst.WriteFrame(ackFrame("unsubscribe", ch, 0)); err != nil {
			return err
		}
	}
	return nil
}

type message struct {
	channel string
	payload []byte
}

// subscriptions is the per-connection channel set in subscribe mode. Every
// receiver is drained by a forwarder goroutine into one merged channel.
type subscriptions struct {
	store     *memory.Store
	dst       *conn.Connection
	receivers map[string]*memory.Receiver
	order     []string
	messages  chan message
	done      chan struct{}
	wg        sync.WaitGroup
}

func newSubscriptions(store *memory.Store, dst *conn.Connection) *subscriptions {
	return &subscriptions{
		store:     store,
		dst:       dst,
		receivers: make(map[string]*memory.Receiver),
		messages:  make(chan message),
		done:      make(chan struct{}),
	}
}

// add subscribes to ch and writes the acknowledgement. Subscribing twice to
// the same channel only repeats the acknowledgement.
func (s *subscriptions) add(ch string) error {
	if _, ok := s.receivers[ch]; !ok {
		r := s.store.Subscribe(ch)
		s.receivers[ch] = r
		s.order = append(s.order, ch)
		s.wg.Add(1)
		go s.forward(r)
	}
	return s.dst.WriteFrame(ackFrame("subscribe", ch, len(s.receivers)))
}

// remove unsubscribes from ch and writes the acknowledgement.
func (s *subscriptions) remove(ch string) error {
	if r, ok := s.receivers[ch]; ok {
		r.Close()
		delete(s.receivers, ch)
		for i, name := range s.order {
			if name == ch {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return s.dst.WriteFrame(ackFrame("unsubscribe", ch, len(s.receivers)))
}

func (s *subscriptions) forward(r *memory.Receiver) {
	defer s.wg.Done()
	for payload := range r.C() {
		select {
		case s.messages <- message{channel: r.Channel(), payload: payload}:
		case <-s.done:
			return
		}
	}
}

// handle runs one request received while in subscribe mode.
func (s *subscriptions) handle(ctx context.Context, f frame.Frame) error {
	cmd, err := FromFrame(f)
	if err != nil {
		if isFatal(err) {
			// Replied to by the handler before it closes.
			return err
		}
		return s.dst.WriteFrame(errorFrame(err))
	}
	switch c := cmd.(type) {
	case *Subscribe:
		for _, ch := range c.Channels {
			if err := s.add(ch); err != nil {
				return err
			}
		}
		return nil
	case *Unsubscribe:
		channels := c.Channels
		if len(channels) == 0 {
			if len(s.order) == 0 {
				return s.dst.WriteFrame(frame.Array{frame.Bulk("unsubscribe"), frame.Null{}, frame.Integer(0)})
			}
			channels = append([]string(nil), s.order...)
		}
		for _, ch := range channels {
			if err := s.remove(ch); err != nil {
				return err
			}
		}
		return nil
	case *Ping:
		return s.dst.WriteFrame(pongFrame(c.Msg))
	case *Quit:
		if err := s.dst.WriteFrame(frame.Simple("OK")); err != nil {
			return err
		}
		return errCloseConn
	default:
		logger.L(ctx).Debug("command rejected in subscribe mode", "command", cmd.Name())
		return s.dst.WriteFrame(frame.Error("ERR only SUBSCRIBE / UNSUBSCRIBE / PING / QUIT are allowed in this context"))
	}
}

func (s *subscriptions) closeAll() {
	close(s.done)
	for _, r := range s.receivers {
		r.Close()
	}
	s.wg.Wait()
}

type readResult struct {
	f   frame.Frame
	err error
}

// readFrames reads requests in the background until ctx is cancelled or the
// stream ends. The last value sent carries the error or the nil frame.
// Subscribers may stay silent, so an idle timeout between frames is ignored.
func readFrames(ctx context.Context, src *conn.Connection) <-chan readResult {
	out := make(chan readResult)
	go func() {
		for {
			f, err := src.ReadFrame(ctx)
			if err != nil && isTimeout(err) && src.Buffered() == 0 && ctx.Err() == nil {
				continue
			}
			select {
			case out <- readResult{f: f, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil || f == nil {
				return
			}
		}
	}()
	return out
}

// pongFrame is the subscribe mode PING reply. Without an argument the second
// element is an empty bulk string.
func pongFrame(msg []byte) frame.Frame {
	if msg == nil {
		return frame.Array{frame.Bulk("pong"), frame.Bulk("")}
	}
	return frame.Array{frame.Bulk("pong"), frame.Bulk(msg)}
}

func ackFrame(kind, ch string, n int) frame.Frame {
	return frame.Array{frame.Bulk(kind), frame.Bulk(ch), frame.Integer(n)}
}

func messageFrame(ch string, payload []byte) frame.Frame {
	a := frame.NewArray()
	a.PushString("message")
	a.PushString(ch)
	a.PushBulk(payload)
	return *a
}

func errorFrame(err error) frame.Frame {
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return frame.Error(cerr.Msg)
	}
	return frame.Error("ERR " + err.Error())
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
