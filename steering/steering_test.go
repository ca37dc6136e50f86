package steering

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"handosc/handtrack"
)

type recordSender struct {
	mu   sync.Mutex
	cmds []Command
}

func (r *recordSender) SendCommand(cmd Command) error {
	r.mu.Lock()
	r.cmds = append(r.cmds, cmd)
	r.mu.Unlock()
	return nil
}

func (r *recordSender) take() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.cmds
	r.cmds = nil
	return out
}

func newTestController() (*Controller, *recordSender) {
	rs := &recordSender{}
	return NewController(0.4, rs, slog.New(slog.NewTextHandler(io.Discard, nil))), rs
}

func equal(a, b []Command) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUpdateTransitions(t *testing.T) {
	c, rs := newTestController()

	steps := []struct {
		dir  handtrack.Vec3
		want []Command
	}{
		{handtrack.Vec3{}, nil},
		{handtrack.Vec3{X: -0.5}, []Command{PressLeft}},
		{handtrack.Vec3{X: -0.9}, nil},
		{handtrack.Vec3{X: 0.1}, []Command{ReleaseLeft}},
		{handtrack.Vec3{X: -0.6}, []Command{PressLeft}},
		{handtrack.Vec3{X: 0.6}, []Command{ReleaseLeft, PressRight}},
		{handtrack.Vec3{X: 0.6, Y: 0.5}, []Command{PressUp}},
		{handtrack.Vec3{X: 0, Y: -0.5}, []Command{ReleaseRight, ReleaseUp, PressDown}},
		{handtrack.Vec3{X: 0.4, Y: -0.4}, []Command{ReleaseDown}},
	}
	for i, s := range steps {
		if err := c.Update(s.dir); err != nil {
			t.Fatal(err)
		}
		if got := rs.take(); !equal(got, s.want) {
			t.Errorf("step %d %v: got %v, want %v", i, s.dir, got, s.want)
		}
	}
}

func TestRelease(t *testing.T) {
	c, rs := newTestController()
	_ = c.Update(handtrack.Vec3{X: -1, Y: 1})
	rs.take()

	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
	if got := rs.take(); !equal(got, []Command{ReleaseLeft, ReleaseUp}) {
		t.Errorf("got %v", got)
	}
	if s, a := c.State(); s != SteerNeutral || a != AccelNeutral {
		t.Errorf("state = %v %v", s, a)
	}
	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
	if got := rs.take(); len(got) != 0 {
		t.Errorf("second release sent %v", got)
	}
}

// failSender refuses each command in fail once, then delivers it.
type failSender struct {
	recordSender
	fail map[Command]bool
}

func (f *failSender) SendCommand(cmd Command) error {
	f.mu.Lock()
	refuse := f.fail[cmd]
	delete(f.fail, cmd)
	f.mu.Unlock()
	if refuse {
		return errors.New("connection refused")
	}
	return f.recordSender.SendCommand(cmd)
}

func newFailController(fail ...Command) (*Controller, *failSender) {
	fs := &failSender{fail: make(map[Command]bool)}
	for _, cmd := range fail {
		fs.fail[cmd] = true
	}
	return NewController(0.4, fs, slog.New(slog.NewTextHandler(io.Discard, nil))), fs
}

func TestUpdateRetriesFailedPress(t *testing.T) {
	c, fs := newFailController(PressLeft)

	err := c.Update(handtrack.Vec3{X: -0.9, Y: 0.9})
	if err == nil {
		t.Fatal("expected error from refused press")
	}
	if got := fs.take(); !equal(got, []Command{PressUp}) {
		t.Errorf("first update sent %v, want the other axis to go through", got)
	}
	if s, a := c.State(); s != SteerNeutral || a != AccelUp {
		t.Errorf("state = %v %v, want neutral steering and up", s, a)
	}

	if err := c.Update(handtrack.Vec3{X: -0.9, Y: 0.9}); err != nil {
		t.Fatal(err)
	}
	if got := fs.take(); !equal(got, []Command{PressLeft}) {
		t.Errorf("second update sent %v, want the press retried", got)
	}
}

func TestUpdateFailedReleaseKeepsKeyHeld(t *testing.T) {
	c, fs := newFailController(ReleaseLeft)
	_ = c.Update(handtrack.Vec3{X: -1})
	fs.take()

	if err := c.Update(handtrack.Vec3{X: 1}); err == nil {
		t.Fatal("expected error from refused release")
	}
	if got := fs.take(); len(got) != 0 {
		t.Errorf("pressed %v while left was still held", got)
	}
	if s, _ := c.State(); s != SteerLeft {
		t.Errorf("steer = %v, want left still held", s)
	}

	if err := c.Update(handtrack.Vec3{X: 1}); err != nil {
		t.Fatal(err)
	}
	if got := fs.take(); !equal(got, []Command{ReleaseLeft, PressRight}) {
		t.Errorf("got %v", got)
	}
}

func TestReleaseTriesEveryAxis(t *testing.T) {
	c, fs := newFailController(ReleaseLeft)
	_ = c.Update(handtrack.Vec3{X: -1, Y: 1})
	fs.take()

	if err := c.Release(); err == nil {
		t.Fatal("expected error from refused release")
	}
	if got := fs.take(); !equal(got, []Command{ReleaseUp}) {
		t.Errorf("got %v, want the accelerator released anyway", got)
	}
	if s, a := c.State(); s != SteerLeft || a != AccelNeutral {
		t.Errorf("state = %v %v, want left held and accel neutral", s, a)
	}

	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
	if got := fs.take(); !equal(got, []Command{ReleaseLeft}) {
		t.Errorf("second release sent %v", got)
	}
}

func TestOrientation(t *testing.T) {
	for _, tt := range []struct {
		yaw  float32
		want Steer
	}{{0, SteerNeutral}, {25, SteerLeft}, {-25, SteerRight}, {20, SteerNeutral}} {
		if got := SteerFromYaw(tt.yaw); got != tt.want {
			t.Errorf("SteerFromYaw(%v) = %v, want %v", tt.yaw, got, tt.want)
		}
	}
	for _, tt := range []struct {
		roll float32
		want Accel
	}{{-50, AccelNeutral}, {-30, AccelUp}, {-70, AccelDown}, {-65, AccelNeutral}} {
		if got := AccelFromRoll(tt.roll); got != tt.want {
			t.Errorf("AccelFromRoll(%v) = %v, want %v", tt.roll, got, tt.want)
		}
	}
}

func TestOrientationHandlers(t *testing.T) {
	c, rs := newTestController()

	c.HandleYaw(osc.NewMessage("/multisense/orientation/yaw", float32(30)))
	c.HandleRoll(osc.NewMessage("/multisense/orientation/roll", float32(-20)))
	c.HandleYaw(osc.NewMessage("/multisense/orientation/yaw"))
	c.HandleFire(osc.NewMessage("/multisense/pad/doubletap"))
	if got := rs.take(); !equal(got, []Command{PressLeft, PressUp, Fire}) {
		t.Errorf("got %v", got)
	}
	if s, a := c.State(); s != SteerLeft || a != AccelUp {
		t.Errorf("state = %v %v", s, a)
	}

	c.HandleYaw(osc.NewMessage("/multisense/orientation/yaw", float32(0)))
	if got := rs.take(); !equal(got, []Command{ReleaseLeft}) {
		t.Errorf("got %v", got)
	}
}

func TestRunClampsTimeout(t *testing.T) {
	c, _ := newTestController()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx, time.Nanosecond); err != nil {
		t.Fatal(err)
	}
}

func TestHandleMessage(t *testing.T) {
	c, rs := newTestController()
	c.HandleMessage(osc.NewMessage("/hand/right/direction", float32(0.9), float32(0), float32(0)))
	if got := rs.take(); !equal(got, []Command{PressRight}) {
		t.Errorf("got %v", got)
	}

	c.HandleMessage(osc.NewMessage("/hand/right/direction", float32(0)))
	c.HandleMessage(osc.NewMessage("/hand/right/direction", "a", "b", "c"))
	if got := rs.take(); len(got) != 0 {
		t.Errorf("malformed messages sent %v", got)
	}
}

func TestRunReleasesIdleHand(t *testing.T) {
	c, rs := newTestController()
	_ = c.Update(handtrack.Vec3{X: 1})
	rs.take()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 40*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for {
		if s, _ := c.State(); s == SteerNeutral {
			break
		}
		select {
		case <-deadline:
			t.Fatal("idle hand was never released")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := rs.take(); !equal(got, []Command{ReleaseRight}) {
		t.Errorf("got %v", got)
	}
}

func TestUDPSender(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	s, err := DialUDP(pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SendCommand(PressLeft); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "P_LEFT" {
		t.Errorf("datagram = %q", buf[:n])
	}
}
