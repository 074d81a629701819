package redisserver

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// limiterSet hands out one token bucket per client IP. Connections from the
// same address share a bucket, which is dropped when the last one closes.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter *rate.Limiter
	refs    int
}

// newLimiterSet returns nil when perSecond is not positive, which disables
// limiting.
func newLimiterSet(perSecond, burst int) *limiterSet {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perSecond
	}
	return &limiterSet{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

func (s *limiterSet) acquire(ip string) *rate.Limiter {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[ip] = b
	}
	b.refs++
	return b.limiter
}

func (s *limiterSet) release(ip string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[ip]; ok {
		b.refs--
		if b.refs <= 0 {
			delete(s.buckets, ip)
		}
	}
}

func (s *limiterSet) len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// clientIP strips the port from a remote address.
func clientIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
