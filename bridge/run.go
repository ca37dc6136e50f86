package bridge

import (
	"context"
	"fmt"
	"time"
)

// DefaultRate is the tick rate used when none is configured, in Hz.
const DefaultRate = 60.0

// RunOptions controls the host loop.
type RunOptions struct {
	// Rate is the tick frequency in Hz.
	Rate float64
	// StopOnError makes Run return the first failed tick instead of
	// logging it and carrying on.
	StopOnError bool
}

// Interval converts a rate in Hz into a ticker period.
func Interval(rate float64) time.Duration {
	if rate <= 0 {
		rate = DefaultRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// Run drives Tick at a fixed rate until ctx is cancelled. Each Tick
// completes before the next one starts.
func (b *Bridge) Run(ctx context.Context, opts RunOptions) error {
	if b.Inert() {
		<-ctx.Done()
		return nil
	}

	interval := Interval(opts.Rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("bridge started", "interval", interval)
	defer b.logger.Info("bridge stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.Tick(); err != nil {
				if opts.StopOnError {
					return fmt.Errorf("tick: %w", err)
				}
				b.logger.Warn("tick failed", "error", err)
			}
		}
	}
}
