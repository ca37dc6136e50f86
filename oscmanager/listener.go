// Package oscmanager carries bridge messages over OSC/UDP and receives OSC
// traffic from upstream trackers.
package oscmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/hypebeast/go-osc/osc"
)

// Listener owns an OSC server and routes incoming messages to handlers.
type Listener struct {
	Addr string

	dispatcher *osc.StandardDispatcher
	logger     *slog.Logger

	mu       sync.RWMutex
	routes   map[string]struct{}
	fallback osc.HandlerFunc
}

// NewListener creates a listener for addr (host:port).
func NewListener(addr string, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		Addr:       addr,
		dispatcher: osc.NewStandardDispatcher(),
		logger:     logger,
		routes:     make(map[string]struct{}),
	}
}

// Handle registers fn for messages sent to addr.
func (l *Listener) Handle(addr string, fn osc.HandlerFunc) error {
	if err := l.dispatcher.AddMsgHandler(addr, fn); err != nil {
		return err
	}
	l.mu.Lock()
	l.routes[addr] = struct{}{}
	l.mu.Unlock()
	return nil
}

// HandleUnrouted sets the handler for messages no route claims.
func (l *Listener) HandleUnrouted(fn osc.HandlerFunc) {
	l.mu.Lock()
	l.fallback = fn
	l.mu.Unlock()
}

// Dispatch implements osc.Dispatcher. Incoming addresses are patterns:
// go-osc matches them unanchored against every route, so a bare
// "/tracker" reaches every handler under it, lost-hand ones included.
func (l *Listener) Dispatch(packet osc.Packet) {
	defer func() {
		// go-osc compiles the address with regexp.MustCompile.
		if r := recover(); r != nil {
			l.logger.Warn("dropping OSC packet with bad address pattern", "panic", r)
		}
	}()
	l.dispatchUnrouted(packet)
	l.dispatcher.Dispatch(packet)
}

func (l *Listener) dispatchUnrouted(packet osc.Packet) {
	l.mu.RLock()
	fallback := l.fallback
	l.mu.RUnlock()
	if fallback == nil {
		return
	}

	switch p := packet.(type) {
	case *osc.Message:
		if !l.routed(p) {
			fallback(p)
		}
	case *osc.Bundle:
		for _, m := range p.Messages {
			l.dispatchUnrouted(m)
		}
		for _, b := range p.Bundles {
			l.dispatchUnrouted(b)
		}
	}
}

// Run listens on Addr until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", l.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.Addr, err)
	}
	return l.Serve(ctx, conn)
}

// Serve reads packets from conn until ctx is cancelled. conn is closed on return.
func (l *Listener) Serve(ctx context.Context, conn net.PacketConn) error {
	server := &osc.Server{
		Addr:       conn.LocalAddr().String(),
		Dispatcher: l,
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close()
	}()

	l.logger.Info("listening for OSC", "addr", server.Addr)
	err := server.Serve(conn)
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return fmt.Errorf("serve %s: %w", server.Addr, err)
}

func (l *Listener) routed(m *osc.Message) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for route := range l.routes {
		if m.Match(route) {
			return true
		}
	}
	return false
}
