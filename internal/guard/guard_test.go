package guard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/procfs"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

type staticProvider struct {
	metrics ports.HostMetrics
	err     error
}

func (s staticProvider) Sample(context.Context) (ports.HostMetrics, error) {
	return s.metrics, s.err
}

func testConfig() config.GuardConfig {
	return config.GuardConfig{MinFreeGB: 10, MaxCPUPercent: 85, MaxActiveDownloads: 2}
}

func TestAllow(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	tests := []struct {
		name string
		m    ports.HostMetrics
		want bool
	}{
		{"healthy", ports.HostMetrics{FreeDiskGB: 50, CPUPercent: 20}, true},
		{"low disk idle cpu", ports.HostMetrics{FreeDiskGB: 9.9, CPUPercent: 0}, false},
		{"busy cpu plenty of disk", ports.HostMetrics{FreeDiskGB: 500, CPUPercent: 85.1}, false},
		{"at limits", ports.HostMetrics{FreeDiskGB: 10, CPUPercent: 85}, true},
		{"downloads saturated", ports.HostMetrics{FreeDiskGB: 50, CPUPercent: 1, ActiveDownloads: 2}, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Allow(cfg, tc.m); got != tc.want {
				t.Fatalf("Allow(%+v) = %v, want %v", tc.m, got, tc.want)
			}
		})
	}
}

func TestAcquireTracksActiveDownloads(t *testing.T) {
	t.Parallel()

	g := New(testConfig(), staticProvider{metrics: ports.HostMetrics{FreeDiskGB: 100, CPUPercent: 5}}, nil)
	ctx := context.Background()

	releaseA, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	releaseB, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if _, err := g.Acquire(ctx); !errors.Is(err, domain.ErrGuardDenied) {
		t.Fatalf("expected ErrGuardDenied at capacity, got %v", err)
	}

	releaseA()
	releaseA()
	if g.Active() != 1 {
		t.Fatalf("release must be idempotent, active=%d", g.Active())
	}

	releaseC, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	releaseB()
	releaseC()
	if g.Active() != 0 {
		t.Fatalf("expected no active downloads, got %d", g.Active())
	}
}

func TestAcquireDeniesOnHostPressure(t *testing.T) {
	t.Parallel()

	g := New(testConfig(), staticProvider{metrics: ports.HostMetrics{FreeDiskGB: 1, CPUPercent: 0}}, nil)
	if _, err := g.Acquire(context.Background()); !errors.Is(err, domain.ErrGuardDenied) {
		t.Fatalf("expected ErrGuardDenied, got %v", err)
	}

	failing := New(testConfig(), staticProvider{err: errors.New("procfs unavailable")}, nil)
	if _, err := failing.Acquire(context.Background()); !errors.Is(err, domain.ErrGuardDenied) {
		t.Fatalf("expected sampling failure to deny, got %v", err)
	}
}

func TestAcquireConcurrentNeverExceedsCap(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxActiveDownloads = 3
	g := New(cfg, staticProvider{metrics: ports.HostMetrics{FreeDiskGB: 100}}, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		granted  int
		releases []func()
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if err != nil {
				return
			}
			mu.Lock()
			granted++
			releases = append(releases, release)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if granted != 3 || g.Active() != 3 {
		t.Fatalf("expected exactly 3 slots, granted=%d active=%d", granted, g.Active())
	}
	for _, r := range releases {
		r()
	}
}

func TestBusyPercent(t *testing.T) {
	t.Parallel()

	before := procfs.CPUStat{User: 100, System: 50, Idle: 800, Iowait: 50}
	after := procfs.CPUStat{User: 130, System: 60, Idle: 850, Iowait: 60}

	// total delta 100, idle delta 60
	if got := busyPercent(before, after); got != 40 {
		t.Fatalf("expected 40%% busy, got %.2f", got)
	}
	if got := busyPercent(after, after); got != 0 {
		t.Fatalf("expected 0 on empty window, got %.2f", got)
	}
}
