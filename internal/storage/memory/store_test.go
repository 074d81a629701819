package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_GetSet(t *testing.T) {
	s := New()

	if _, ok := s.Get("foo"); ok {
		t.Fatal("Get on empty store should miss")
	}

	s.Set("foo", []byte("bar"), 0)
	got, ok := s.Get("foo")
	if !ok || string(got) != "bar" {
		t.Fatalf("Get(foo) = %q, %v", got, ok)
	}

	s.Set("foo", []byte("baz"), 0)
	got, _ = s.Get("foo")
	if string(got) != "baz" {
		t.Errorf("Get after overwrite = %q, want baz", got)
	}
}

func TestStore_ValuesAreCopied(t *testing.T) {
	s := New()

	in := []byte("abc")
	s.Set("k", in, 0)
	in[0] = 'X'

	out, _ := s.Get("k")
	if string(out) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", out)
	}
	out[0] = 'Y'

	again, _ := s.Get("k")
	if string(again) != "abc" {
		t.Errorf("returned value aliased stored slice: %q", again)
	}
}

func TestStore_EmptyValue(t *testing.T) {
	s := New()
	s.Set("empty", nil, 0)

	got, ok := s.Get("empty")
	if !ok {
		t.Fatal("empty value should be present")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Get(empty) = %v, want empty non-nil slice", got)
	}
}

func TestStore_DeleteExists(t *testing.T) {
	s := New()
	s.Set("a", []byte("1"), 0)
	s.Set("b", []byte("2"), 0)

	if n := s.Exists("a", "b", "c", "a"); n != 3 {
		t.Errorf("Exists = %d, want 3", n)
	}
	if n := s.Delete("a", "c"); n != 1 {
		t.Errorf("Delete = %d, want 1", n)
	}
	if n := s.Exists("a"); n != 0 {
		t.Errorf("Exists(a) after delete = %d, want 0", n)
	}
}

func TestStore_Expiry(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	s.Set("session", []byte("x"), 10*time.Second)
	s.Set("forever", []byte("y"), 0)

	ttl, ok := s.TTL("session")
	if !ok || ttl != 10*time.Second {
		t.Fatalf("TTL(session) = %v, %v", ttl, ok)
	}
	if _, ok := s.TTL("forever"); ok {
		t.Error("TTL(forever) should report no expiry")
	}

	clock.Advance(9 * time.Second)
	if _, ok := s.Get("session"); !ok {
		t.Fatal("key expired early")
	}

	clock.Advance(time.Second)
	if _, ok := s.Get("session"); ok {
		t.Fatal("key should have expired")
	}
	if _, ok := s.Get("forever"); !ok {
		t.Error("persistent key disappeared")
	}
	if st := s.Stats(); st.Expired != 1 || st.Keys != 1 {
		t.Errorf("Stats() = %+v, want 1 expired, 1 key", st)
	}
}

func TestStore_SetClearsExpiry(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	s.Set("k", []byte("v1"), time.Second)
	s.Set("k", []byte("v2"), 0)
	clock.Advance(time.Hour)

	if got, ok := s.Get("k"); !ok || string(got) != "v2" {
		t.Errorf("Get(k) = %q, %v, want v2", got, ok)
	}
}

func TestStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		s.Set(fmt.Sprintf("tmp:%d", i), []byte("x"), time.Second)
	}
	s.Set("keep", []byte("x"), 0)

	if n := s.Sweep(); n != 0 {
		t.Fatalf("Sweep() before expiry = %d, want 0", n)
	}
	clock.Advance(2 * time.Second)
	if n := s.Sweep(); n != 10 {
		t.Fatalf("Sweep() = %d, want 10", n)
	}
	if st := s.Stats(); st.Keys != 1 {
		t.Errorf("Keys = %d, want 1", st.Keys)
	}
}

func TestStore_RunSweeps(t *testing.T) {
	s := New(WithSweepInterval(5 * time.Millisecond))
	s.Set("short", []byte("x"), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Stats().Keys != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Run did not evict the expired key")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestStore_ConcurrentSetsAreLinearizable(t *testing.T) {
	s := New()
	v1 := []byte("value-one-value-one")
	v2 := []byte("VALUE-TWO-VALUE-TWO")

	for round := 0; round < 100; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.Set("k", v1, 0) }()
		go func() { defer wg.Done(); s.Set("k", v2, 0) }()
		wg.Wait()

		got, _ := s.Get("k")
		if string(got) != string(v1) && string(got) != string(v2) {
			t.Fatalf("round %d: Get(k) = %q, want one of the written values", round, got)
		}
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%20)
				s.Set(key, []byte{byte(i)}, 0)
				s.Get(key)
				s.Exists(key)
				if j%7 == 0 {
					s.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
}
