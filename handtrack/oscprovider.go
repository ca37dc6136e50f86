package handtrack

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// DefaultHandTimeout is how long a hand survives without a fresh update.
const DefaultHandTimeout = 250 * time.Millisecond

// Registrar is where the provider hooks its OSC handlers.
type Registrar interface {
	Handle(addr string, fn osc.HandlerFunc) error
}

// TrackerAddress is the address an upstream tracker publishes a hand on.
func TrackerAddress(c Chirality) string {
	return "/tracker/hand/" + c.Ident()
}

// LostAddress tells the provider a hand left the tracking volume.
// It must not share a prefix with TrackerAddress: go-osc matches
// addresses as unanchored patterns.
func LostAddress(c Chirality) string {
	return "/tracker/lost/" + c.Ident()
}

type trackedHand struct {
	obs  HandObservation
	seen time.Time
}

// OSCProvider keeps the latest hand observations pushed by an upstream
// tracker over OSC.
//
// A hand message carries three float32 values for the hand direction,
// optionally followed by three float32 values per finger.
type OSCProvider struct {
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	hands [2]*trackedHand
}

// NewOSCProvider creates a provider. A non-positive timeout means DefaultHandTimeout.
func NewOSCProvider(timeout time.Duration, logger *slog.Logger) *OSCProvider {
	if timeout <= 0 {
		timeout = DefaultHandTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OSCProvider{
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Register installs the hand and lost handlers for both chiralities.
// Senders address them by pattern, so "/tracker" or "/tracker/lost/*"
// forgets both hands at once.
func (p *OSCProvider) Register(r Registrar) error {
	for _, c := range []Chirality{Left, Right} {
		if err := r.Handle(TrackerAddress(c), func(msg *osc.Message) { p.HandleHand(c, msg) }); err != nil {
			return fmt.Errorf("register %s: %w", TrackerAddress(c), err)
		}
		if err := r.Handle(LostAddress(c), func(*osc.Message) { p.Forget(c) }); err != nil {
			return fmt.Errorf("register %s: %w", LostAddress(c), err)
		}
	}
	return nil
}

// HandleHand stores the observation carried by msg.
func (p *OSCProvider) HandleHand(c Chirality, msg *osc.Message) {
	obs, err := decodeHand(c, msg.Arguments)
	if err != nil {
		p.logger.Debug("dropping tracker message", "address", msg.Address, "error", err)
		return
	}

	p.mu.Lock()
	p.hands[c] = &trackedHand{obs: obs, seen: p.now()}
	p.mu.Unlock()
}

// Forget drops the hand immediately.
func (p *OSCProvider) Forget(c Chirality) {
	p.mu.Lock()
	p.hands[c] = nil
	p.mu.Unlock()
}

// CurrentSnapshot returns the live hands, left first.
func (p *OSCProvider) CurrentSnapshot() Snapshot {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	var snap Snapshot
	for _, h := range p.hands {
		if h == nil || now.Sub(h.seen) > p.timeout {
			continue
		}
		snap.Hands = append(snap.Hands, h.obs)
	}
	return snap
}

func decodeHand(c Chirality, args []interface{}) (HandObservation, error) {
	if len(args) < 3 || len(args)%3 != 0 {
		return HandObservation{}, fmt.Errorf("want 3 values per vector, got %d", len(args))
	}

	vals := make([]float32, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case float32:
			vals[i] = v
		case float64:
			vals[i] = float32(v)
		case int32:
			vals[i] = float32(v)
		default:
			return HandObservation{}, fmt.Errorf("argument %d: unsupported type %T", i, a)
		}
	}

	obs := HandObservation{
		Chirality: c,
		Direction: Vec3{X: vals[0], Y: vals[1], Z: vals[2]},
	}
	for i := 3; i < len(vals); i += 3 {
		obs.Fingers = append(obs.Fingers, FingerObservation{
			Direction: Vec3{X: vals[i], Y: vals[i+1], Z: vals[i+2]},
		})
	}
	return obs, nil
}
