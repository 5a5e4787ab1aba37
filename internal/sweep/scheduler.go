package sweep

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultInterval is how often a scheduled sweep runs.
const DefaultInterval = time.Hour

// Scheduler runs sweeps on a fixed interval until its context is canceled.
type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   *log.Logger
}

// NewScheduler creates a Scheduler. A non-positive interval falls back to
// DefaultInterval.
func NewScheduler(sweeper *Sweeper, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, logger: logger}
}

// Run sweeps immediately, then on every tick, until ctx is canceled.
// A failed sweep is logged and the schedule continues.
func (sc *Scheduler) Run(ctx context.Context) error {
	if _, err := sc.sweeper.Run(ctx); err != nil {
		sc.logger.Error("sweep failed", "err", err)
	}

	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := sc.sweeper.Run(ctx); err != nil {
				sc.logger.Error("sweep failed", "err", err)
			}
		}
	}
}
