package oscmanager

import (
	"context"
	"log/slog"

	"github.com/hypebeast/go-osc/osc"
)

// DumpHandler logs every message it receives at the given level.
func DumpHandler(logger *slog.Logger, level slog.Level) osc.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(msg *osc.Message) {
		logger.Log(context.Background(), level, "osc message", "address", msg.Address, "arguments", msg.Arguments)
	}
}
