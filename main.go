package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"handosc/bridge"
	"handosc/config"
	"handosc/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	gui := flag.Bool("gui", false, "open the monitor window")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "handosc: %v\n", err)
		os.Exit(2)
	}
	if *gui {
		cfg.GUI = true
	}

	// --- Logging ---
	var mon *monitor
	var out io.Writer = os.Stderr
	if cfg.GUI {
		mon = newMonitor(200)
		out = io.MultiWriter(os.Stderr, mon.console)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, out)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- Provider & sink ---
	provider, sourceRunners, err := buildProvider(cfg.Source, logger)
	if err != nil {
		logger.Error("tracking source unavailable", "kind", cfg.Source.Kind, "error", err)
	}
	sink, sinkRunners, err := buildSink(cfg.Sink, logger)
	if err != nil {
		logger.Error("sink unavailable", "kind", cfg.Sink.Kind, "error", err)
	}

	// A nil provider or sink leaves the bridge inert; it reports that itself.
	b := bridge.New(provider, sink, logger)

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range append(sourceRunners, sinkRunners...) {
		g.Go(func() error { return r(gctx) })
	}
	g.Go(func() error {
		return b.Run(gctx, bridge.RunOptions{Rate: cfg.TickRate, StopOnError: cfg.StopOnError})
	})

	// --- GUI ---
	if mon != nil {
		mon.run(gctx, b)
		cancel()
	}

	if err := g.Wait(); err != nil {
		logger.Error("handosc stopped", "error", err)
		os.Exit(1)
	}
}
