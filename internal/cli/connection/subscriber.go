package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

// Message is one published message received in subscribe mode.
type Message struct {
	Channel string `json:"channel" yaml:"channel"`
	Payload []byte `json:"payload" yaml:"payload"`
}

// Subscriber reads messages from a connection in subscribe mode.
type Subscriber struct {
	c *Client

	wmu     sync.Mutex
	count   int
	pending []Message
}

// Subscribe enters subscribe mode on channels and waits for every
// acknowledgement. The Client belongs to the returned Subscriber from now on.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*Subscriber, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("connection: subscribe needs at least one channel")
	}
	s := &Subscriber{c: c}
	if err := s.send("SUBSCRIBE", channels...); err != nil {
		return nil, err
	}
	for acked := 0; acked < len(channels); {
		f, err := c.read(ctx)
		if err != nil {
			return nil, err
		}
		kind, msg, err := s.handle(f)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "subscribe":
			acked++
		case "message":
			s.pending = append(s.pending, msg)
		}
	}
	return s, nil
}

// Subscribe adds channels. The acknowledgements are consumed by Next.
func (s *Subscriber) Subscribe(channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	return s.send("SUBSCRIBE", channels...)
}

// Unsubscribe removes channels, or every channel when none are given.
// The connection stays in subscribe mode until it is closed.
func (s *Subscriber) Unsubscribe(channels ...string) error {
	return s.send("UNSUBSCRIBE", channels...)
}

// Ping sends a PING. The reply is consumed by Next.
func (s *Subscriber) Ping() error {
	return s.send("PING")
}

// Next blocks until a message arrives, ctx is done or the connection ends.
func (s *Subscriber) Next(ctx context.Context) (Message, error) {
	if len(s.pending) > 0 {
		msg := s.pending[0]
		s.pending = s.pending[1:]
		return msg, nil
	}
	for {
		f, err := s.c.read(ctx)
		if err != nil {
			return Message{}, err
		}
		kind, msg, err := s.handle(f)
		if err != nil {
			return Message{}, err
		}
		if kind == "message" {
			return msg, nil
		}
	}
}

// Count returns the subscription count from the latest acknowledgement.
func (s *Subscriber) Count() int {
	return s.count
}

// Close closes the underlying connection.
func (s *Subscriber) Close() error {
	return s.c.Close()
}

func (s *Subscriber) send(verb string, channels ...string) error {
	if s.c.closed.Load() {
		return ErrClosed
	}
	req := frame.NewArray()
	req.PushString(verb)
	for _, ch := range channels {
		req.PushString(ch)
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.c.conn.WriteFrame(req)
}

// handle classifies one subscribe-mode push frame.
func (s *Subscriber) handle(f frame.Frame) (string, Message, error) {
	if e, ok := f.(frame.Error); ok {
		return "", Message{}, &ServerError{Msg: string(e)}
	}
	arr, ok := f.(frame.Array)
	if !ok || len(arr) < 2 {
		return "", Message{}, fmt.Errorf("%w: %s in subscribe mode", ErrUnexpectedReply, frame.Kind(f))
	}
	kind, ok := arr[0].(frame.Bulk)
	if !ok {
		return "", Message{}, fmt.Errorf("%w: push kind is %s", ErrUnexpectedReply, frame.Kind(arr[0]))
	}

	switch string(kind) {
	case "message":
		if len(arr) != 3 {
			break
		}
		ch, ok1 := arr[1].(frame.Bulk)
		payload, ok2 := arr[2].(frame.Bulk)
		if !ok1 || !ok2 {
			break
		}
		return "message", Message{Channel: string(ch), Payload: []byte(payload)}, nil
	case "subscribe", "unsubscribe":
		if len(arr) != 3 {
			break
		}
		if n, ok := arr[2].(frame.Integer); ok {
			s.count = int(n)
		}
		return string(kind), Message{}, nil
	case "pong":
		return "pong", Message{}, nil
	}
	return "", Message{}, fmt.Errorf("%w: malformed %q push", ErrUnexpectedReply, string(kind))
}
