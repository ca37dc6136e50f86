package blemanager

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"handosc/bridge"
	"handosc/util"
)

const (
	retryDelay     = 5 * time.Second
	heartbeatDelay = 2 * time.Second
)

// conn is the part of BLEManager the sink depends on.
type conn interface {
	ConnectDevice(addr string) error
	Send(data string) error
	Ready() bool
	Disconnect()
}

// Sink forwards bridge messages to one BLE peripheral as text frames.
// Run must be running for Send to succeed; until the device is connected
// Send returns ErrNotReady.
type Sink struct {
	addr   string
	logger *slog.Logger
	dial   func() (conn, error)
	retry  time.Duration

	mu  sync.Mutex
	cur conn
}

// NewSink creates a sink for the device at addr.
func NewSink(addr string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		addr:   addr,
		logger: logger.With("device", util.NormalizeDeviceID(addr)),
		retry:  retryDelay,
		dial: func() (conn, error) {
			m, err := New()
			if err != nil {
				return nil, err
			}
			return m, nil
		},
	}
}

// Send implements bridge.Sink.
func (s *Sink) Send(msg bridge.Message) error {
	s.mu.Lock()
	c := s.cur
	s.mu.Unlock()
	if c == nil {
		return ErrNotReady
	}
	return c.Send(FormatFrame(msg))
}

// FormatFrame renders a message as "<address> v1,v2,v3".
func FormatFrame(msg bridge.Message) string {
	vals := make([]string, len(msg.Values))
	for i, v := range msg.Values {
		vals[i] = strconv.FormatFloat(float64(v), 'f', 3, 32)
	}
	return msg.Address + " " + strings.Join(vals, ",")
}

// Run keeps the device connected until ctx is cancelled: connect, then
// heartbeat until the link drops, then reconnect. The adapter is enabled
// once and its manager reused across reconnects.
func (s *Sink) Run(ctx context.Context) error {
	defer s.set(nil)

	var c conn
	for ctx.Err() == nil {
		if c == nil {
			m, err := s.dial()
			if err != nil {
				s.logger.Warn("ble adapter unavailable", "error", err)
				if !sleep(ctx, s.retry) {
					break
				}
				continue
			}
			c = m
		}

		s.logger.Info("connecting")
		if err := c.ConnectDevice(s.addr); err != nil {
			s.logger.Warn("connect failed", "error", err)
			if !sleep(ctx, s.retry) {
				break
			}
			continue
		}

		s.logger.Info("connected")
		s.set(c)

		for ctx.Err() == nil && c.Ready() {
			if err := c.Send("ping"); err != nil {
				s.logger.Warn("heartbeat failed", "error", err)
				break
			}
			sleep(ctx, heartbeatDelay)
		}

		s.set(nil)
		c.Disconnect()
		s.logger.Info("disconnected")
	}
	return nil
}

func (s *Sink) set(c conn) {
	s.mu.Lock()
	s.cur = c
	s.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Sink) String() string { return fmt.Sprintf("ble:%s", s.addr) }
