package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"go.klb.dev/copas/internal/hub"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/wire"
)

// watchBuffer is the per-subscriber event backlog before events are dropped.
const watchBuffer = 64

// Serve accepts connections on ln until ctx is cancelled or ln is closed.
// Each connection is served on its own goroutine; Serve returns once they
// have all finished.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	context.AfterFunc(ctx, func() { ln.Close() })

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

// serveConn answers requests on conn one at a time. A watch request turns
// the connection into an event stream for the rest of its life.
func (s *Service) serveConn(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wc := wire.New(conn)
	defer wc.Close()
	context.AfterFunc(ctx, func() { wc.Close() })

	defer func() {
		if r := recover(); r != nil {
			slog.Error("ipc connection panic", "panic", r)
		}
	}()

	for {
		req, err := wc.ReadMsg()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				slog.Debug("ipc read failed", "err", err)
			}
			return
		}
		if req.Type != message.TypeRequest {
			resp := message.NewError(req.ID, message.CodeBadRequest, fmt.Errorf("expected %s, got %q", message.TypeRequest, req.Type))
			if err := wc.WriteMsg(resp); err != nil {
				return
			}
			continue
		}
		if req.Op == message.OpWatch {
			s.watch(ctx, wc, req)
			return
		}
		if err := wc.WriteMsg(s.Handle(ctx, req)); err != nil {
			slog.Debug("ipc write failed", "op", req.Op, "err", err)
			return
		}
	}
}

// watch registers a hub subscriber for the connection and forwards events
// until the client hangs up or the server stops.
func (s *Service) watch(ctx context.Context, wc *wire.Conn, req *message.Message) {
	a, err := args[message.WatchArgs](req)
	if err != nil {
		_ = wc.WriteMsg(errorResponse(req, nil, err))
		return
	}
	accept := make([]hub.EventType, 0, len(a.Accept))
	for _, name := range a.Accept {
		t, ok := hub.ParseEventType(name)
		if !ok {
			_ = wc.WriteMsg(errorResponse(req, nil, fmt.Errorf("%w: unknown event type %q", errBadRequest, name)))
			return
		}
		accept = append(accept, t)
	}

	id := fmt.Sprintf("watch-%d", s.watchSeq.Add(1))
	sub := hub.NewChan(id, "ipc", watchBuffer, accept...)
	s.hub.Register(sub)
	defer s.hub.Unregister(sub)

	ack, err := message.NewResponse(req.ID, sub.Info())
	if err != nil {
		return
	}
	if err := wc.WriteMsg(ack); err != nil {
		return
	}
	slog.Info("watch started", "subscriber", id, "accept", a.Accept)
	defer slog.Info("watch ended", "subscriber", id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// Anything the client sends after watch is ignored; a read error
		// means it went away.
		for {
			if _, err := wc.ReadMsg(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C():
			msg, err := message.NewEvent(ev)
			if err != nil {
				slog.Warn("encoding event failed", "type", ev.Type, "err", err)
				continue
			}
			if err := wc.WriteMsg(msg); err != nil {
				return
			}
		}
	}
}
