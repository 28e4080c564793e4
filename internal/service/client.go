package service

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.klb.dev/copas/internal/hub"
	"go.klb.dev/copas/internal/ipc"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/wire"
)

// Client talks to a running daemon. Calls are serialised; one request is in
// flight at a time.
type Client struct {
	mu   sync.Mutex
	wc   *wire.Conn
	next uint64
}

// Dial connects to the daemon listening at path.
func Dial(path string) (*Client, error) {
	conn, err := ipc.Dial(path)
	if err != nil {
		return nil, fmt.Errorf("connect to copas daemon at %s: %w", path, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{wc: wire.New(conn)}
}

// Close closes the connection.
func (c *Client) Close() error { return c.wc.Close() }

// Call sends op with args and decodes the response payload into out, which
// may be nil. An ERROR reply is returned as *message.RemoteError; for a
// persist error out is still filled because the change was applied.
func (c *Client) Call(ctx context.Context, op string, args, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	req, err := message.NewRequest(c.next, op, args)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { c.wc.Close() })
	defer stop()

	if err := c.wc.WriteMsg(req); err != nil {
		return c.ctxErr(ctx, fmt.Errorf("%s: send: %w", op, err))
	}
	resp, err := c.wc.ReadMsg()
	if err != nil {
		return c.ctxErr(ctx, fmt.Errorf("%s: receive: %w", op, err))
	}
	if resp.ID != req.ID {
		return fmt.Errorf("%s: response id %d does not match request %d", op, resp.ID, req.ID)
	}
	if out != nil {
		if err := resp.BindData(out); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return resp.Err()
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Watch turns the connection into an event stream and calls fn for every
// event until ctx is cancelled, the daemon goes away or fn returns an
// error. The client cannot be used for calls afterwards.
func (c *Client) Watch(ctx context.Context, accept []string, fn func(hub.Event) error) error {
	var info hub.SubscriberInfo
	if err := c.Call(ctx, message.OpWatch, message.WatchArgs{Accept: accept}, &info); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	stop := context.AfterFunc(ctx, func() { c.wc.Close() })
	defer stop()

	for {
		msg, err := c.wc.ReadMsg()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if msg.Type != message.TypeEvent {
			continue
		}
		var ev hub.Event
		if err := msg.BindData(&ev); err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
