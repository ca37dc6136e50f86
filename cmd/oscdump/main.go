// Command oscdump prints every OSC message received on an address.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"handosc/logging"
	"handosc/oscmanager"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "UDP address to listen on")
	format := flag.String("log-format", "text", "text or json")
	flag.Parse()

	logger := logging.Setup("info", *format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	listener := oscmanager.NewListener(*addr, logger)
	listener.HandleUnrouted(oscmanager.DumpHandler(logger, slog.LevelInfo))

	if err := listener.Run(ctx); err != nil {
		logger.Error("oscdump stopped", "error", err)
		os.Exit(1)
	}
}
