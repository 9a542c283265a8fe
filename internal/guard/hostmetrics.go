package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"LeakScanner/internal/ports"
)

// HostProvider reads free disk space via statfs and CPU utilisation from
// two /proc/stat snapshots taken a short window apart.
type HostProvider struct {
	diskPath string
	window   time.Duration
	fs       procfs.FS
}

var _ ports.MetricsProvider = (*HostProvider)(nil)

// NewHostProvider opens the default procfs mount.
func NewHostProvider(diskPath string, window time.Duration) (*HostProvider, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	if window <= 0 {
		window = 200 * time.Millisecond
	}
	return &HostProvider{diskPath: diskPath, window: window, fs: fs}, nil
}

// Sample returns a fresh reading; it blocks for the CPU window.
func (h *HostProvider) Sample(ctx context.Context) (ports.HostMetrics, error) {
	free, err := freeDiskGB(h.diskPath)
	if err != nil {
		return ports.HostMetrics{}, err
	}

	cpu, err := h.cpuPercent(ctx)
	if err != nil {
		return ports.HostMetrics{}, err
	}

	return ports.HostMetrics{FreeDiskGB: free, CPUPercent: cpu}, nil
}

func (h *HostProvider) cpuPercent(ctx context.Context) (float64, error) {
	before, err := h.fs.Stat()
	if err != nil {
		return 0, fmt.Errorf("read cpu stat: %w", err)
	}

	timer := time.NewTimer(h.window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	after, err := h.fs.Stat()
	if err != nil {
		return 0, fmt.Errorf("read cpu stat: %w", err)
	}

	return busyPercent(before.CPUTotal, after.CPUTotal), nil
}

func busyPercent(before, after procfs.CPUStat) float64 {
	total := cpuTotal(after) - cpuTotal(before)
	if total <= 0 {
		return 0
	}
	idle := (after.Idle + after.Iowait) - (before.Idle + before.Iowait)
	return 100 * (total - idle) / total
}

// Guest time is already accounted in User and Nice.
func cpuTotal(s procfs.CPUStat) float64 {
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.IRQ + s.SoftIRQ + s.Steal
}

func freeDiskGB(path string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return float64(st.Bavail) * float64(st.Bsize) / (1 << 30), nil
}
