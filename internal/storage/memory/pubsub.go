package memory

import "sync/atomic"

// topic is the set of receivers subscribed to one channel.
type topic struct {
	receivers map[uint64]*Receiver
}

// Receiver delivers messages published to one channel.
//
// Messages are shared between receivers and must not be modified.
type Receiver struct {
	store   *Store
	channel string
	id      uint64
	ch      chan []byte
	closed  bool // guarded by store.mu
	dropped atomic.Uint64
}

// Subscribe registers a new receiver on channel, creating the channel if it
// does not exist yet.
func (s *Store) Subscribe(channel string) *Receiver {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r := &Receiver{
		store:   s,
		channel: channel,
		id:      s.nextID,
		ch:      make(chan []byte, s.capacity),
	}
	if s.closed {
		r.closeLocked()
		return r
	}

	t, ok := s.topics[channel]
	if !ok {
		t = &topic{receivers: make(map[uint64]*Receiver)}
		s.topics[channel] = t
	}
	t.receivers[r.id] = r
	return r
}

// Publish sends msg to every receiver of channel and returns how many
// accepted it. Receivers whose backlog is full miss the message.
func (s *Store) Publish(channel string, msg []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published++
	t, ok := s.topics[channel]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range t.receivers {
		select {
		case r.ch <- msg:
			n++
		default:
			r.dropped.Add(1)
			s.dropped++
		}
	}
	s.delivered += uint64(n)
	return n
}

// Subscribers returns the number of receivers on channel.
func (s *Store) Subscribers(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.topics[channel]; ok {
		return len(t.receivers)
	}
	return 0
}

// C returns the message stream. It is closed when the receiver or the store is closed.
func (r *Receiver) C() <-chan []byte {
	return r.ch
}

// Channel returns the channel name.
func (r *Receiver) Channel() string {
	return r.channel
}

// Dropped returns how many messages this receiver missed.
func (r *Receiver) Dropped() uint64 {
	return r.dropped.Load()
}

// Close unsubscribes the receiver. The channel is removed from the registry
// once its last receiver is gone.
func (r *Receiver) Close() {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed {
		return
	}
	if t, ok := s.topics[r.channel]; ok {
		delete(t.receivers, r.id)
		if len(t.receivers) == 0 {
			delete(s.topics, r.channel)
		}
	}
	r.closeLocked()
}

func (r *Receiver) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}
