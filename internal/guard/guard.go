// Package guard decides whether the host can afford another full download.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

// Allow is the admission predicate over one metrics reading.
func Allow(cfg config.GuardConfig, m ports.HostMetrics) bool {
	return m.FreeDiskGB >= cfg.MinFreeGB &&
		m.CPUPercent <= cfg.MaxCPUPercent &&
		m.ActiveDownloads < int64(cfg.MaxActiveDownloads)
}

// Guard samples host metrics before every full fetch and tracks in-flight
// downloads across all sources sharing it.
type Guard struct {
	cfg      config.GuardConfig
	provider ports.MetricsProvider
	active   atomic.Int64
	logger   *slog.Logger
}

// New wires the policy with a metrics provider.
func New(cfg config.GuardConfig, provider ports.MetricsProvider, logger *slog.Logger) *Guard {
	return &Guard{cfg: cfg, provider: provider, logger: logger}
}

// Acquire samples fresh metrics and, when allowed, reserves a download slot.
// The returned release must be called once the download finishes. Denials
// wrap domain.ErrGuardDenied.
func (g *Guard) Acquire(ctx context.Context) (func(), error) {
	m, err := g.provider.Sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: sample host metrics: %v", domain.ErrGuardDenied, err)
	}

	for {
		current := g.active.Load()
		m.ActiveDownloads = current
		if !Allow(g.cfg, m) {
			return nil, fmt.Errorf("%w: free=%.1fGB cpu=%.1f%% active=%d",
				domain.ErrGuardDenied, m.FreeDiskGB, m.CPUPercent, current)
		}
		if g.active.CompareAndSwap(current, current+1) {
			break
		}
	}

	g.debug("download slot acquired", "active", g.active.Load())

	var once sync.Once
	return func() {
		once.Do(func() {
			g.active.Add(-1)
		})
	}, nil
}

// Active reports the number of downloads currently holding a slot.
func (g *Guard) Active() int64 {
	return g.active.Load()
}

func (g *Guard) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
