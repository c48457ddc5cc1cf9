// Package telemetry reads host-level metrics for the /status and /processes
// endpoints.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"

	"procdeck/internal/models"
)

// Collector supplies host telemetry.
type Collector interface {
	HostStatus(ctx context.Context) (models.HostStatus, error)
	HostProcesses(ctx context.Context) ([]models.HostProcess, error)
}

// HostCollector queries the local host through gopsutil.
type HostCollector struct {
	// CPUSample is the window over which CPU load is measured
	CPUSample time.Duration
}

func NewHostCollector(cpuSample time.Duration) *HostCollector {
	if cpuSample <= 0 {
		cpuSample = 200 * time.Millisecond
	}
	return &HostCollector{CPUSample: cpuSample}
}

// HostStatus runs the CPU, memory, disk, OS and uptime queries concurrently
// and fails if any of them fails.
func (c *HostCollector) HostStatus(ctx context.Context) (models.HostStatus, error) {
	var status models.HostStatus

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		load, err := cpu.PercentWithContext(ctx, c.CPUSample, false)
		if err != nil {
			return fmt.Errorf("cpu load: %w", err)
		}
		if len(load) > 0 {
			status.CPU = load[0]
		}
		return nil
	})

	g.Go(func() error {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return fmt.Errorf("memory: %w", err)
		}
		status.Memory = models.MemoryUsage{Total: vm.Total, Used: vm.Used, Free: vm.Free}
		return nil
	})

	g.Go(func() error {
		disks, err := diskUsage(ctx)
		if err != nil {
			return err
		}
		status.Disk = disks
		return nil
	})

	g.Go(func() error {
		info, err := host.InfoWithContext(ctx)
		if err != nil {
			return fmt.Errorf("host info: %w", err)
		}
		status.OS = models.OSInfo{
			Platform: info.OS,
			Distro:   info.Platform,
			Release:  info.PlatformVersion,
			Kernel:   info.KernelVersion,
			Arch:     runtime.GOARCH,
			Hostname: info.Hostname,
		}
		return nil
	})

	g.Go(func() error {
		uptime, err := host.UptimeWithContext(ctx)
		if err != nil {
			return fmt.Errorf("uptime: %w", err)
		}
		status.Uptime = uptime
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.HostStatus{}, err
	}

	return status, nil
}

func diskUsage(ctx context.Context) ([]models.DiskUsage, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	disks := make([]models.DiskUsage, 0, len(partitions))
	for _, p := range partitions {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			// Unreadable mounts (permissions, stale network shares) are skipped.
			slog.DebugContext(ctx, "Skipping disk", "mountpoint", p.Mountpoint, "error", err)
			continue
		}
		disks = append(disks, models.DiskUsage{
			FS:   p.Device,
			Size: usage.Total,
			Used: usage.Used,
			Use:  usage.UsedPercent,
		})
	}

	return disks, nil
}

// HostProcesses lists every process on the host. Fields that cannot be read
// for a process (typically permissions) are left empty.
func (c *HostCollector) HostProcesses(ctx context.Context) ([]models.HostProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("processes: %w", err)
	}

	result := make([]models.HostProcess, 0, len(procs))
	for _, p := range procs {
		name, _ := p.NameWithContext(ctx)
		user, _ := p.UsernameWithContext(ctx)
		cmd, _ := p.CmdlineWithContext(ctx)
		cpuPercent, _ := p.CPUPercentWithContext(ctx)

		var rss uint64
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			rss = info.RSS
		}

		var state string
		if s, err := p.StatusWithContext(ctx); err == nil && len(s) > 0 {
			state = s[0]
		}

		result = append(result, models.HostProcess{
			Pid:        p.Pid,
			Name:       name,
			User:       user,
			Command:    cmd,
			CPUPercent: cpuPercent,
			MemoryRSS:  rss,
			Status:     state,
		})
	}

	return result, nil
}
