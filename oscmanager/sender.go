package oscmanager

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hypebeast/go-osc/osc"

	"handosc/bridge"
)

// Sender delivers bridge messages as OSC over UDP. Every value is sent as
// an OSC float32 argument.
type Sender struct {
	client *osc.Client
	target string
}

// NewSender targets host:port.
func NewSender(host string, port int) *Sender {
	return &Sender{
		client: osc.NewClient(host, port),
		target: net.JoinHostPort(host, strconv.Itoa(port)),
	}
}

// Target is the destination host:port.
func (s *Sender) Target() string { return s.target }

// Send implements bridge.Sink.
func (s *Sender) Send(msg bridge.Message) error {
	if err := s.client.Send(ToOSC(msg)); err != nil {
		return fmt.Errorf("osc send to %s: %w", s.target, err)
	}
	return nil
}

// ToOSC converts a bridge message into an OSC message.
func ToOSC(msg bridge.Message) *osc.Message {
	m := osc.NewMessage(msg.Address)
	for _, v := range msg.Values {
		m.Append(v)
	}
	return m
}
