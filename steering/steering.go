// Package steering turns hand direction messages into press/release key
// commands for a racing game listening on UDP.
package steering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"handosc/handtrack"
)

// Command is a datagram understood by the game input client.
type Command string

const (
	PressLeft    Command = "P_LEFT"
	ReleaseLeft  Command = "R_LEFT"
	PressRight   Command = "P_RIGHT"
	ReleaseRight Command = "R_RIGHT"
	PressUp      Command = "P_UP"
	ReleaseUp    Command = "R_UP"
	PressDown    Command = "P_DOWN"
	ReleaseDown  Command = "R_DOWN"
	Fire         Command = "FIRE"
)

// Orientation thresholds, in degrees, for steering from device yaw and roll.
// Roll is centred on RollOffset because the device is held tilted.
const (
	YawThreshold  = 20
	RollThreshold = 15
	RollOffset    = -50
)

// MinReleaseTimeout is the shortest idle timeout Run accepts.
const MinReleaseTimeout = 10 * time.Millisecond

// Steer is the held steering key.
type Steer int

const (
	SteerNeutral Steer = iota
	SteerLeft
	SteerRight
)

// Accel is the held acceleration key.
type Accel int

const (
	AccelNeutral Accel = iota
	AccelUp
	AccelDown
)

var (
	steerPress   = map[Steer]Command{SteerLeft: PressLeft, SteerRight: PressRight}
	steerRelease = map[Steer]Command{SteerLeft: ReleaseLeft, SteerRight: ReleaseRight}
	accelPress   = map[Accel]Command{AccelUp: PressUp, AccelDown: PressDown}
	accelRelease = map[Accel]Command{AccelUp: ReleaseUp, AccelDown: ReleaseDown}
)

// Sender delivers commands to the game.
type Sender interface {
	SendCommand(cmd Command) error
}

// Controller tracks which keys are held and emits commands only on
// transitions.
type Controller struct {
	threshold float32
	sender    Sender
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	steer      Steer
	accel      Accel
	lastUpdate time.Time
}

// NewController creates a controller. X beyond ±threshold steers, Y beyond
// ±threshold accelerates or brakes.
func NewController(threshold float32, sender Sender, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		threshold: threshold,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
}

// State returns the held keys.
func (c *Controller) State() (Steer, Accel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steer, c.accel
}

// Update applies a new hand direction.
func (c *Controller) Update(dir handtrack.Vec3) error {
	steer := SteerNeutral
	switch {
	case dir.X < -c.threshold:
		steer = SteerLeft
	case dir.X > c.threshold:
		steer = SteerRight
	}

	accel := AccelNeutral
	switch {
	case dir.Y < -c.threshold:
		accel = AccelDown
	case dir.Y > c.threshold:
		accel = AccelUp
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpdate = c.now()
	return errors.Join(
		shift(c, &c.steer, steer, steerRelease, steerPress),
		shift(c, &c.accel, accel, accelRelease, accelPress),
	)
}

// Release lets go of every held key. An axis whose release could not be
// sent stays held, so a later Release retries it.
func (c *Controller) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(
		shift(c, &c.steer, SteerNeutral, steerRelease, steerPress),
		shift(c, &c.accel, AccelNeutral, accelRelease, accelPress),
	)
}

// shift moves one axis from *held to want. *held only changes after the
// matching command went out, so it always mirrors what the game has seen.
func shift[K comparable](c *Controller, held *K, want K, release, press map[K]Command) error {
	if *held == want {
		return nil
	}
	if cmd, ok := release[*held]; ok {
		if err := c.send(cmd); err != nil {
			return err
		}
		var neutral K
		*held = neutral
	}
	if cmd, ok := press[want]; ok {
		if err := c.send(cmd); err != nil {
			return err
		}
		*held = want
	}
	return nil
}

func (c *Controller) send(cmd Command) error {
	c.logger.Debug("sending command", "command", cmd)
	if err := c.sender.SendCommand(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

// HandleMessage accepts a /hand/<chirality>/direction message. It fits
// osc.HandlerFunc.
func (c *Controller) HandleMessage(msg *osc.Message) {
	if len(msg.Arguments) != 3 {
		c.logger.Debug("ignoring direction message", "address", msg.Address, "arguments", len(msg.Arguments))
		return
	}
	var v [3]float32
	for i, a := range msg.Arguments {
		f, ok := a.(float32)
		if !ok {
			c.logger.Debug("ignoring direction message", "address", msg.Address, "type", fmt.Sprintf("%T", a))
			return
		}
		v[i] = f
	}
	if err := c.Update(handtrack.Vec3{X: v[0], Y: v[1], Z: v[2]}); err != nil {
		c.logger.Warn("steering update failed", "error", err)
	}
}

// SteerFromYaw maps a yaw angle to a steering key. Turning left is a
// positive yaw.
func SteerFromYaw(deg float32) Steer {
	switch {
	case deg < -YawThreshold:
		return SteerRight
	case deg > YawThreshold:
		return SteerLeft
	}
	return SteerNeutral
}

// AccelFromRoll maps a roll angle to an acceleration key.
func AccelFromRoll(deg float32) Accel {
	switch {
	case deg < RollOffset-RollThreshold:
		return AccelDown
	case deg > RollOffset+RollThreshold:
		return AccelUp
	}
	return AccelNeutral
}

// SetSteer moves only the steering axis.
func (c *Controller) SetSteer(want Steer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpdate = c.now()
	return shift(c, &c.steer, want, steerRelease, steerPress)
}

// SetAccel moves only the acceleration axis.
func (c *Controller) SetAccel(want Accel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpdate = c.now()
	return shift(c, &c.accel, want, accelRelease, accelPress)
}

// Fire sends a one-shot FIRE command. Held keys are untouched.
func (c *Controller) Fire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(Fire)
}

// HandleYaw accepts a single-angle orientation message and steers from it.
func (c *Controller) HandleYaw(msg *osc.Message) {
	if deg, ok := c.angle(msg); ok {
		if err := c.SetSteer(SteerFromYaw(deg)); err != nil {
			c.logger.Warn("steering update failed", "error", err)
		}
	}
}

// HandleRoll accepts a single-angle orientation message and accelerates
// from it.
func (c *Controller) HandleRoll(msg *osc.Message) {
	if deg, ok := c.angle(msg); ok {
		if err := c.SetAccel(AccelFromRoll(deg)); err != nil {
			c.logger.Warn("steering update failed", "error", err)
		}
	}
}

// HandleFire fires on any message, whatever its arguments.
func (c *Controller) HandleFire(*osc.Message) {
	if err := c.Fire(); err != nil {
		c.logger.Warn("fire failed", "error", err)
	}
}

func (c *Controller) angle(msg *osc.Message) (float32, bool) {
	if len(msg.Arguments) == 0 {
		c.logger.Debug("ignoring orientation message", "address", msg.Address)
		return 0, false
	}
	switch v := msg.Arguments[0].(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int32:
		return float32(v), true
	}
	c.logger.Debug("ignoring orientation message", "address", msg.Address, "type", fmt.Sprintf("%T", msg.Arguments[0]))
	return 0, false
}

// Run releases held keys once no update arrived for timeout. It returns
// when ctx is cancelled, releasing everything on the way out. A timeout
// below MinReleaseTimeout is raised to it.
func (c *Controller) Run(ctx context.Context, timeout time.Duration) error {
	timeout = max(timeout, MinReleaseTimeout)
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.Release()
		case <-ticker.C:
			c.mu.Lock()
			idle := c.now().Sub(c.lastUpdate) > timeout
			held := c.steer != SteerNeutral || c.accel != AccelNeutral
			c.mu.Unlock()
			if idle && held {
				c.logger.Info("hand lost, releasing keys")
				if err := c.Release(); err != nil {
					c.logger.Warn("release failed", "error", err)
				}
			}
		}
	}
}

// UDPSender writes each command as one datagram.
type UDPSender struct {
	conn net.Conn
}

// DialUDP connects to the game's input client at addr (host:port).
func DialUDP(addr string) (*UDPSender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &UDPSender{conn: conn}, nil
}

func (s *UDPSender) SendCommand(cmd Command) error {
	_, err := s.conn.Write([]byte(cmd))
	return err
}

func (s *UDPSender) Close() error { return s.conn.Close() }
