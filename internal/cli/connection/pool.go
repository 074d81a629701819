package connection

import (
	"context"
	"errors"
	"fmt"

	pool "github.com/jolestar/go-commons-pool/v2"
)

// Pool is a bounded set of Clients to one server.
type Pool struct {
	objects *pool.ObjectPool
}

// PoolOptions configures NewPool.
type PoolOptions struct {
	Options
	// Size caps both live and idle clients. Zero means 8.
	Size int
}

// clientFactory tells the object pool how to create and check Clients.
type clientFactory struct {
	addr string
	opts Options
}

func (f *clientFactory) MakeObject(ctx context.Context) (*pool.PooledObject, error) {
	c, err := Dial(ctx, f.addr, f.opts)
	if err != nil {
		return nil, err
	}
	return pool.NewPooledObject(c), nil
}

func (f *clientFactory) DestroyObject(_ context.Context, object *pool.PooledObject) error {
	c, ok := object.Object.(*Client)
	if !ok {
		return errors.New("connection: pooled object is not a *Client")
	}
	return c.Close()
}

func (f *clientFactory) ValidateObject(_ context.Context, object *pool.PooledObject) bool {
	c, ok := object.Object.(*Client)
	return ok && !c.closed.Load()
}

func (f *clientFactory) ActivateObject(context.Context, *pool.PooledObject) error {
	return nil
}

func (f *clientFactory) PassivateObject(context.Context, *pool.PooledObject) error {
	return nil
}

// NewPool creates a pool that dials addr on demand.
func NewPool(ctx context.Context, addr string, opts PoolOptions) *Pool {
	size := opts.Size
	if size <= 0 {
		size = 8
	}
	cfg := pool.NewDefaultPoolConfig()
	cfg.MaxTotal = size
	cfg.MaxIdle = size
	cfg.TestOnBorrow = true
	return &Pool{
		objects: pool.NewObjectPool(ctx, &clientFactory{addr: addr, opts: opts.Options}, cfg),
	}
}

// Get borrows a client, dialing a new one if none is idle. It blocks while
// the pool is exhausted.
func (p *Pool) Get(ctx context.Context) (*Client, error) {
	obj, err := p.objects.BorrowObject(ctx)
	if err != nil {
		return nil, fmt.Errorf("connection: borrow: %w", err)
	}
	c, ok := obj.(*Client)
	if !ok {
		return nil, errors.New("connection: pooled object is not a *Client")
	}
	return c, nil
}

// Put returns a client. A client that failed with a transport error should
// be passed with broken set so it is closed instead of reused.
func (p *Pool) Put(ctx context.Context, c *Client, broken bool) error {
	if broken {
		return p.objects.InvalidateObject(ctx, c)
	}
	return p.objects.ReturnObject(ctx, c)
}

// Do borrows a client, runs fn and returns the client. Transport errors
// discard the client; ServerError replies do not.
func (p *Pool) Do(ctx context.Context, fn func(*Client) error) error {
	c, err := p.Get(ctx)
	if err != nil {
		return err
	}
	err = fn(c)
	var serr *ServerError
	broken := err != nil && !errors.As(err, &serr)
	if perr := p.Put(ctx, c, broken); perr != nil && err == nil {
		err = perr
	}
	return err
}

// Active returns how many clients are borrowed.
func (p *Pool) Active() int {
	return p.objects.GetNumActive()
}

// Idle returns how many clients are idle.
func (p *Pool) Idle() int {
	return p.objects.GetNumIdle()
}

// Close closes every idle client and stops the pool.
func (p *Pool) Close(ctx context.Context) {
	p.objects.Close(ctx)
}
