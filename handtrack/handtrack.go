// Package handtrack holds the hand-pose observations the bridge consumes
// and the providers that produce them.
package handtrack

import (
	"fmt"
	"strings"
)

// IndexFingerSlot is the position of the index finger in Fingers.
// Fingers are ordered thumb, index, middle, ring, pinky.
const IndexFingerSlot = 1

// Vec3 is a direction vector as reported by the tracker.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// Chirality tells a left hand from a right hand.
type Chirality int

const (
	Left Chirality = iota
	Right
)

// Label is the capitalised name used in log lines.
func (c Chirality) Label() string {
	if c == Left {
		return "Left"
	}
	return "Right"
}

// Ident is the lowercase name used in OSC addresses.
func (c Chirality) Ident() string {
	if c == Left {
		return "left"
	}
	return "right"
}

func (c Chirality) String() string { return c.Label() }

// ParseChirality accepts "left"/"right" in any case.
func ParseChirality(s string) (Chirality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Left, fmt.Errorf("unknown chirality %q", s)
}

func (c Chirality) MarshalText() ([]byte, error) {
	return []byte(c.Ident()), nil
}

func (c *Chirality) UnmarshalText(b []byte) error {
	parsed, err := ParseChirality(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// FingerObservation is one tracked finger.
type FingerObservation struct {
	Direction Vec3 `json:"direction"`
}

// HandObservation is one tracked hand in a snapshot.
type HandObservation struct {
	Chirality Chirality           `json:"chirality"`
	Direction Vec3                `json:"direction"`
	Fingers   []FingerObservation `json:"fingers,omitempty"`
}

// IndexFinger returns the finger in the index slot. The second return
// value is false when the tracker did not report one.
func (h HandObservation) IndexFinger() (FingerObservation, bool) {
	if len(h.Fingers) <= IndexFingerSlot {
		return FingerObservation{}, false
	}
	return h.Fingers[IndexFingerSlot], true
}

// Snapshot is everything the tracker saw during one tick.
type Snapshot struct {
	Hands []HandObservation `json:"hands"`
}

// Empty reports whether no hand was tracked.
func (s Snapshot) Empty() bool { return len(s.Hands) == 0 }

// Provider hands out the most recent snapshot. Implementations must not block.
type Provider interface {
	CurrentSnapshot() Snapshot
}

// StaticProvider always returns the same snapshot.
type StaticProvider struct {
	Snapshot Snapshot
}

func (p StaticProvider) CurrentSnapshot() Snapshot { return p.Snapshot }
