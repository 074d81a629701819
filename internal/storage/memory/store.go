package memory

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultChannelCapacity is the per-subscriber message backlog.
const DefaultChannelCapacity = 1024

// DefaultSweepInterval is how often Run evicts expired keys.
const DefaultSweepInterval = time.Second

// Store holds keys and pub/sub channels shared by every connection.
type Store struct {
	mu     sync.Mutex
	data   map[string]entry
	topics map[string]*topic
	closed bool
	nextID uint64

	published uint64
	delivered uint64
	dropped   uint64
	expired   uint64

	capacity      int
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expiredAt(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Stats is a point-in-time view of the store.
type Stats struct {
	Keys        int
	Channels    int
	Subscribers int
	// Published counts Publish calls.
	Published uint64
	// Delivered counts messages accepted into a subscriber backlog.
	Delivered uint64
	// Dropped counts messages lost because a subscriber backlog was full.
	Dropped uint64
	// Expired counts keys removed because their TTL elapsed.
	Expired uint64
}

// Option configures the Store.
type Option func(*Store)

// WithChannelCapacity sets the per-subscriber backlog.
func WithChannelCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithSweepInterval sets how often Run evicts expired keys.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data:          make(map[string]entry),
		topics:        make(map[string]*topic),
		capacity:      DefaultChannelCapacity,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the value stored at key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(e.value), true
}

// Set stores value at key. A positive ttl makes the key expire after that
// duration; otherwise the key persists and any previous expiry is cleared.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	e := entry{value: bytes.Clone(value)}
	if e.value == nil {
		e.value = []byte{}
	}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e
}

// Delete removes the given keys and returns how many existed.
func (s *Store) Delete(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range keys {
		if _, ok := s.lookup(k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n
}

// Exists returns how many of the given keys are present. Repeated keys count
// each time.
func (s *Store) Exists(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range keys {
		if _, ok := s.lookup(k); ok {
			n++
		}
	}
	return n
}

// TTL returns the remaining lifetime of key. ok is false when the key is
// missing or has no expiry.
func (s *Store) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.expiresAt.IsZero() {
		return 0, false
	}
	return e.expiresAt.Sub(s.now()), true
}

// lookup returns the live entry for key, evicting it if it has expired.
// Callers hold s.mu.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if e.expiredAt(s.now()) {
		delete(s.data, key)
		s.expired++
		return entry{}, false
	}
	return e, true
}

// Run evicts expired keys every sweep interval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("evicted expired keys", "count", n)
			}
		}
	}
}

// Sweep removes every expired key and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, e := range s.data {
		if e.expiredAt(now) {
			delete(s.data, k)
			n++
		}
	}
	s.expired += uint64(n)
	return n
}

// Stats returns current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Keys:      len(s.data),
		Channels:  len(s.topics),
		Published: s.published,
		Delivered: s.delivered,
		Dropped:   s.dropped,
		Expired:   s.expired,
	}
	for _, t := range s.topics {
		st.Subscribers += len(t.receivers)
	}
	return st
}

// Close closes every subscriber. Later publishes reach nobody and later
// subscriptions are returned already closed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for name, t := range s.topics {
		for _, r := range t.receivers {
			r.closeLocked()
		}
		delete(s.topics, name)
	}
}
