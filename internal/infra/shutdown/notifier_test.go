package shutdown

import (
	"sync"
	"testing"
	"time"
)

func TestListener_RecvAfterNotify(t *testing.T) {
	n := NewNotifier()
	l := n.Subscribe()

	if l.IsShutdown() {
		t.Fatal("new listener should not be shut down")
	}
	if l.Poll() {
		t.Fatal("Poll() before Notify should be false")
	}

	n.Notify()
	l.Recv()
	if !l.IsShutdown() {
		t.Fatal("listener should be shut down after Recv")
	}
}

func TestListener_RecvIsIdempotent(t *testing.T) {
	n := NewNotifier()
	l := n.Subscribe()
	n.Notify()

	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		go func() {
			l.Recv()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("Recv() call %d blocked after shutdown", i+1)
		}
	}
}

func TestListener_RecvBlocksUntilNotify(t *testing.T) {
	n := NewNotifier()
	l := n.Subscribe()

	done := make(chan struct{})
	go func() {
		l.Recv()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Recv() returned before Notify")
	case <-time.After(20 * time.Millisecond):
	}

	n.Notify()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Recv() did not return after Notify")
	}
}

func TestNotifier_BroadcastToAll(t *testing.T) {
	n := NewNotifier()

	const count = 16
	listeners := make([]*Listener, count)
	for i := range listeners {
		listeners[i] = n.Subscribe()
	}

	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l *Listener) {
			defer wg.Done()
			l.Recv()
		}(l)
	}

	n.Notify()
	n.Notify()

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("not every listener observed shutdown")
	}

	for i, l := range listeners {
		if !l.IsShutdown() {
			t.Errorf("listener %d not shut down", i)
		}
	}
}

func TestListener_LateSubscriber(t *testing.T) {
	n := NewNotifier()
	n.Notify()

	l := n.Subscribe()
	if !l.Poll() {
		t.Error("listener created after Notify should observe shutdown")
	}
	select {
	case <-l.Context().Done():
	default:
		t.Error("Context() should be cancelled")
	}
	select {
	case <-n.Done():
	default:
		t.Error("Notifier.Done() should be closed")
	}
}
