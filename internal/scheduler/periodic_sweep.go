package scheduler

import (
	"context"
	"time"

	"repuestos_backend/internal/expiration"
	"repuestos_backend/platform/logger"
)

// PeriodicSweep runs the expiration sweep on a fixed interval. It lives in
// the scheduler process next to the queue worker.
type PeriodicSweep struct {
	sweeper  *expiration.Sweeper
	interval time.Duration
	log      *logger.Logger
}

// NewPeriodicSweep creates the ticker job. Intervals below one minute are
// clamped to five minutes.
func NewPeriodicSweep(sweeper *expiration.Sweeper, interval time.Duration, log *logger.Logger) *PeriodicSweep {
	if interval < time.Minute {
		interval = 5 * time.Minute
	}
	return &PeriodicSweep{sweeper: sweeper, interval: interval, log: log}
}

// Run sweeps until the context is cancelled. One pass runs immediately on
// startup so a restarted scheduler catches up right away.
func (p *PeriodicSweep) Run(ctx context.Context) {
	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *PeriodicSweep) sweep(ctx context.Context) {
	result, err := p.sweeper.Sweep(ctx, 0)
	if err != nil {
		p.log.Error("expiration sweep failed", "error", err)
		return
	}
	if result.Expired > 0 || result.Warned > 0 {
		p.log.JobEvent("expiration_sweep", "completed", "expired", result.Expired, "warned", result.Warned)
	}
}
