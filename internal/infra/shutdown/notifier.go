package shutdown

import (
	"context"
	"sync"
)

// Notifier broadcasts a single shutdown event to any number of listeners.
type Notifier struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewNotifier creates a notifier that has not fired yet.
func NewNotifier() *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{ctx: ctx, cancel: cancel}
}

// Notify fires the shutdown event. Only the first call has an effect.
func (n *Notifier) Notify() {
	n.once.Do(n.cancel)
}

// Done is closed once Notify has been called.
func (n *Notifier) Done() <-chan struct{} {
	return n.ctx.Done()
}

// Subscribe returns an independent listener.
func (n *Notifier) Subscribe() *Listener {
	return &Listener{ctx: n.ctx}
}

// Listener observes a Notifier. Once it has seen the event, it stays shut
// down. A Listener is owned by one goroutine.
type Listener struct {
	ctx      context.Context
	shutdown bool
}

// IsShutdown reports whether the listener has observed the event.
func (l *Listener) IsShutdown() bool {
	return l.shutdown
}

// Recv blocks until the event fires. It returns immediately if the event
// was already observed.
func (l *Listener) Recv() {
	if l.shutdown {
		return
	}
	<-l.ctx.Done()
	l.shutdown = true
}

// Poll records the event if it has fired, without blocking, and returns
// IsShutdown.
func (l *Listener) Poll() bool {
	if !l.shutdown {
		select {
		case <-l.ctx.Done():
			l.shutdown = true
		default:
		}
	}
	return l.shutdown
}

// Done is closed when the event fires.
func (l *Listener) Done() <-chan struct{} {
	return l.ctx.Done()
}

// Context returns a context that is cancelled when the event fires. Blocking
// operations use it to race against shutdown.
func (l *Listener) Context() context.Context {
	return l.ctx
}
