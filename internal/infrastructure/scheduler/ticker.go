package scheduler

import (
	"context"
	"time"

	"LeakScanner/internal/ports"
)

// Ticker runs a job immediately and then on every interval.
type Ticker struct {
	interval time.Duration
}

var _ ports.Scheduler = (*Ticker)(nil)

// NewTicker builds a scheduler ticking every interval.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

// Run blocks until ctx is done. Jobs never overlap: a tick that arrives while
// the job is still running is dropped.
func (t *Ticker) Run(ctx context.Context, job func(context.Context, time.Time)) error {
	if job == nil || t.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	job(ctx, time.Now())
	for {
		select {
		case now := <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			job(ctx, now)
		case <-ctx.Done():
			return nil
		}
	}
}
