package main

import (
	"context"
	"fmt"
	"log/slog"

	"handosc/blemanager"
	"handosc/bridge"
	"handosc/config"
	"handosc/handtrack"
	"handosc/oscmanager"
)

// runner is a background task that lives as long as the bridge.
type runner func(ctx context.Context) error

// forwardHand is what the static source reports.
var forwardHand = handtrack.HandObservation{
	Chirality: handtrack.Right,
	Direction: handtrack.Vec3{X: 0, Y: 0, Z: -1},
}

func buildProvider(cfg config.SourceConfig, logger *slog.Logger) (handtrack.Provider, []runner, error) {
	switch cfg.Kind {
	case config.SourceOSC:
		listener := oscmanager.NewListener(cfg.Listen, logger.With("component", "tracker"))
		p := handtrack.NewOSCProvider(cfg.HandTimeout, logger)
		if err := p.Register(listener); err != nil {
			return nil, nil, err
		}
		listener.HandleUnrouted(oscmanager.DumpHandler(logger, slog.LevelDebug))
		return p, []runner{listener.Run}, nil

	case config.SourceReplay:
		p, err := handtrack.LoadReplay(cfg.ReplayPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("replaying recording", "path", cfg.ReplayPath, "frames", p.Len())
		return p, nil, nil

	case config.SourceStatic:
		return handtrack.StaticProvider{Snapshot: handtrack.Snapshot{
			Hands: []handtrack.HandObservation{forwardHand},
		}}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Kind)
}

func buildSink(cfg config.SinkConfig, logger *slog.Logger) (bridge.Sink, []runner, error) {
	switch cfg.Kind {
	case config.SinkOSC:
		s := oscmanager.NewSender(cfg.Host, cfg.Port)
		logger.Info("sending OSC", "target", s.Target())
		return s, nil, nil

	case config.SinkBLE:
		s := blemanager.NewSink(cfg.BLEAddress, logger)
		return s, []runner{s.Run}, nil
	}
	return nil, nil, fmt.Errorf("unknown sink %q", cfg.Kind)
}
