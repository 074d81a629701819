package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestPool_Do(t *testing.T) {
	addr := startServer(t)
	ctx := testContext(t)

	p := NewPool(ctx, addr, PoolOptions{Size: 4})
	defer p.Close(context.Background())

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			errs <- p.Do(ctx, func(c *Client) error {
				if err := c.Set(ctx, key, []byte(key), 0); err != nil {
					return err
				}
				v, ok, err := c.Get(ctx, key)
				if err != nil {
					return err
				}
				if !ok || string(v) != key {
					return fmt.Errorf("Get(%s) = %q, %v", key, v, ok)
				}
				return nil
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}

	if p.Active() != 0 {
		t.Errorf("Active() = %d, want 0", p.Active())
	}
	if idle := p.Idle(); idle < 1 || idle > 4 {
		t.Errorf("Idle() = %d, want 1..4", idle)
	}
}

func TestPool_ServerErrorKeepsClient(t *testing.T) {
	ctx := testContext(t)
	p := NewPool(ctx, startServer(t), PoolOptions{Size: 1})
	defer p.Close(context.Background())

	err := p.Do(ctx, func(c *Client) error {
		_, err := c.Del(ctx)
		return err
	})
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("Do() = %v, want *ServerError", err)
	}
	if p.Idle() != 1 {
		t.Errorf("Idle() = %d, want 1", p.Idle())
	}
}

func TestPool_BrokenClientDiscarded(t *testing.T) {
	ctx := testContext(t)
	p := NewPool(ctx, startServer(t), PoolOptions{Size: 1})
	defer p.Close(context.Background())

	err := p.Do(ctx, func(c *Client) error {
		_ = c.Close()
		_, err := c.Ping(ctx, "")
		return err
	})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Do() = %v, want ErrClosed", err)
	}
	if p.Idle() != 0 {
		t.Errorf("Idle() = %d, want 0", p.Idle())
	}

	if err := p.Do(ctx, func(c *Client) error {
		_, err := c.Ping(ctx, "")
		return err
	}); err != nil {
		t.Errorf("Do() after discard = %v", err)
	}
}
