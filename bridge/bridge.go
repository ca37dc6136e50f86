// Package bridge turns hand-tracking snapshots into outbound OSC-style
// messages, one per tracked hand per tick.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"handosc/handtrack"
)

var (
	ErrNoProvider = errors.New("no tracking provider configured")
	ErrNoSink     = errors.New("no message sink configured")
)

// Message is a single outbound message.
type Message struct {
	Address string
	Values  []float32
}

// Sink delivers messages. The bridge calls Send synchronously and does not
// retry.
type Sink interface {
	Send(msg Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message) error

func (f SinkFunc) Send(msg Message) error { return f(msg) }

// DirectionAddress is the address a hand's direction is published on.
func DirectionAddress(c handtrack.Chirality) string {
	return "/hand/" + c.Ident() + "/direction"
}

// Bridge converts the provider's current snapshot on every Tick.
type Bridge struct {
	provider handtrack.Provider
	sink     Sink
	logger   *slog.Logger
	err      error

	ticks      atomic.Uint64
	sent       atomic.Uint64
	sendErrors atomic.Uint64
}

// New wires a bridge. A missing provider or sink is logged once and leaves
// the bridge inert: every later Tick is a no-op.
func New(provider handtrack.Provider, sink Sink, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{provider: provider, sink: sink, logger: logger}

	switch {
	case provider == nil:
		b.err = ErrNoProvider
	case sink == nil:
		b.err = ErrNoSink
	}
	if b.err != nil {
		logger.Error("bridge configuration error, extraction disabled", "error", b.err)
	}
	return b
}

// Err returns the configuration error, if any.
func (b *Bridge) Err() error { return b.err }

// Inert reports whether the bridge refuses to do any work.
func (b *Bridge) Inert() bool { return b.err != nil }

// Tick runs one conversion cycle over the provider's current snapshot.
// A sink failure stops the cycle and is returned without retry; the caller decides
// what to do with it.
func (b *Bridge) Tick() error {
	if b.err != nil {
		return nil
	}

	b.ticks.Add(1)
	snap := b.provider.CurrentSnapshot()
	for _, hand := range snap.Hands {
		label := hand.Chirality.Label()

		b.logger.Info(fmt.Sprintf("%s Hand Direction: %s", label, hand.Direction),
			"hand", hand.Chirality.Ident())

		if finger, ok := hand.IndexFinger(); ok {
			b.logger.Info(fmt.Sprintf("%s Hand Index Finger Direction: %s", label, finger.Direction),
				"hand", hand.Chirality.Ident())
		} else {
			b.logger.Info(fmt.Sprintf("%s Hand Index Finger not found.", label),
				"hand", hand.Chirality.Ident())
		}

		msg := Message{
			Address: DirectionAddress(hand.Chirality),
			Values:  []float32{hand.Direction.X, hand.Direction.Y, hand.Direction.Z},
		}
		if err := b.sink.Send(msg); err != nil {
			b.sendErrors.Add(1)
			return fmt.Errorf("send %s: %w", msg.Address, err)
		}
		b.sent.Add(1)
	}
	return nil
}

// Stats are running counters, safe to read from any goroutine.
type Stats struct {
	Ticks      uint64
	Sent       uint64
	SendErrors uint64
}

func (b *Bridge) Stats() Stats {
	return Stats{
		Ticks:      b.ticks.Load(),
		Sent:       b.sent.Load(),
		SendErrors: b.sendErrors.Load(),
	}
}
