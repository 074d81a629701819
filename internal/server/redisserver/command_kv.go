package redisserver

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/protocol/conn"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
	"github.com/yndnr/respkv-go/internal/protocol/parse"
	"github.com/yndnr/respkv-go/internal/storage/memory"
)

// Get reads a key.
type Get struct {
	Key string
}

func parseGet(p *parse.Parse) (*Get, error) {
	key, err := p.NextString()
	if err != nil {
		return nil, err
	}
	return &Get{Key: key}, nil
}

func (c *Get) Name() string { return "get" }

func (c *Get) Apply(_ context.Context, store *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	v, ok := store.Get(c.Key)
	if !ok {
		return dst.WriteFrame(frame.Null{})
	}
	return dst.WriteFrame(frame.Bulk(v))
}

// Set writes a key, optionally with an expiration.
type Set struct {
	Key    string
	Value  []byte
	Expire time.Duration
}

func parseSet(p *parse.Parse) (*Set, error) {
	key, err := p.NextString()
	if err != nil {
		return nil, err
	}
	value, err := p.NextBytes()
	if err != nil {
		return nil, err
	}
	cmd := &Set{Key: key, Value: value}
	if p.Remaining() == 0 {
		return cmd, nil
	}

	opt, err := p.NextString()
	if err != nil {
		return nil, err
	}
	var unit time.Duration
	switch strings.ToUpper(opt) {
	case "EX":
		unit = time.Second
	case "PX":
		unit = time.Millisecond
	default:
		return nil, errSyntax
	}
	n, err := nextUint(p)
	if err != nil {
		return nil, err
	}
	if n == 0 || n > uint64(math.MaxInt64/int64(unit)) {
		return nil, &CommandError{Msg: "ERR invalid expire time in 'set' command"}
	}
	cmd.Expire = time.Duration(n) * unit
	return cmd, nil
}

func (c *Set) Name() string { return "set" }

func (c *Set) Apply(_ context.Context, store *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	store.Set(c.Key, c.Value, c.Expire)
	return dst.WriteFrame(frame.Simple("OK"))
}

// nextKeys reads one or more keys.
func nextKeys(p *parse.Parse) ([]string, error) {
	keys := make([]string, 0, p.Remaining())
	for {
		key, err := p.NextString()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		if p.Remaining() == 0 {
			return keys, nil
		}
	}
}

// Del removes keys.
type Del struct {
	Keys []string
}

func parseDel(p *parse.Parse) (*Del, error) {
	keys, err := nextKeys(p)
	if err != nil {
		return nil, err
	}
	return &Del{Keys: keys}, nil
}

func (c *Del) Name() string { return "del" }

func (c *Del) Apply(_ context.Context, store *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	return dst.WriteFrame(frame.Integer(store.Delete(c.Keys...)))
}

// Exists counts present keys. Repeated keys are counted each time.
type Exists struct {
	Keys []string
}

func parseExists(p *parse.Parse) (*Exists, error) {
	keys, err := nextKeys(p)
	if err != nil {
		return nil, err
	}
	return &Exists{Keys: keys}, nil
}

func (c *Exists) Name() string { return "exists" }

func (c *Exists) Apply(_ context.Context, store *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	return dst.WriteFrame(frame.Integer(store.Exists(c.Keys...)))
}

// TTL reports the remaining lifetime of a key in whole seconds, rounded up.
type TTL struct {
	Key string
}

func parseTTL(p *parse.Parse) (*TTL, error) {
	key, err := p.NextString()
	if err != nil {
		return nil, err
	}
	return &TTL{Key: key}, nil
}

func (c *TTL) Name() string { return "ttl" }

func (c *TTL) Apply(_ context.Context, store *memory.Store, dst *conn.Connection, _ *shutdown.Listener) error {
	d, ok := store.TTL(c.Key)
	if !ok || d <= 0 {
		return dst.WriteFrame(frame.Null{})
	}
	secs := (d + time.Second - 1) / time.Second
	return dst.WriteFrame(frame.Integer(uint64(secs)))
}
