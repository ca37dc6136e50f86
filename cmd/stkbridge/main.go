// Command stkbridge steers a racing game with one hand: it listens for
// /hand/<chirality>/direction OSC messages and sends press/release key
// commands to the game's UDP input client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hypebeast/go-osc/osc"
	"golang.org/x/sync/errgroup"

	"handosc/bridge"
	"handosc/config"
	"handosc/handtrack"
	"handosc/logging"
	"handosc/oscmanager"
	"handosc/steering"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stkbridge: %v\n", err)
		os.Exit(2)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hand, _ := handtrack.ParseChirality(cfg.Steering.Hand) // checked by Validate

	sender, err := steering.DialUDP(cfg.Steering.Target)
	if err != nil {
		logger.Error("game client unreachable", "error", err)
		os.Exit(1)
	}
	defer sender.Close()

	ctrl := steering.NewController(float32(cfg.Steering.Threshold), sender, logger)

	listener := oscmanager.NewListener(cfg.Steering.Listen, logger)
	if err := listener.Handle(bridge.DirectionAddress(hand), ctrl.HandleMessage); err != nil {
		logger.Error("register handler", "error", err)
		os.Exit(1)
	}
	for addr, fn := range map[string]osc.HandlerFunc{
		cfg.Steering.YawAddress:  ctrl.HandleYaw,
		cfg.Steering.RollAddress: ctrl.HandleRoll,
		cfg.Steering.FireAddress: ctrl.HandleFire,
	} {
		if addr == "" {
			continue
		}
		if err := listener.Handle(addr, fn); err != nil {
			logger.Error("register handler", "address", addr, "error", err)
			os.Exit(1)
		}
	}
	listener.HandleUnrouted(oscmanager.DumpHandler(logger, slog.LevelDebug))

	logger.Info("steering", "hand", hand.Ident(), "target", cfg.Steering.Target, "threshold", cfg.Steering.Threshold)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return ctrl.Run(gctx, cfg.Steering.ReleaseTimeout) })
	if err := g.Wait(); err != nil {
		logger.Error("stkbridge stopped", "error", err)
		os.Exit(1)
	}
}
