package collect

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/jonwraymond/devicestatus/health"
)

// InfoComponent identifies the system info probe in telemetry and
// ProbeStates.
const InfoComponent = "system_info"

// ModelFunc returns the hardware model, or "" when unknown.
type ModelFunc func(ctx context.Context) string

// SystemInfoProbe reports platform, uptime, load, CPU count and the memory
// and disk totals for the filesystem holding diskPath. model may be nil.
func SystemInfoProbe(diskPath string, model ModelFunc) InfoFunc {
	if diskPath == "" {
		diskPath = "/"
	}
	return func(ctx context.Context) (health.SystemInfo, error) {
		hi, err := host.InfoWithContext(ctx)
		if err != nil {
			return health.SystemInfo{}, fmt.Errorf("host info: %w", err)
		}
		avg, err := load.AvgWithContext(ctx)
		if err != nil {
			return health.SystemInfo{}, fmt.Errorf("load average: %w", err)
		}
		cpus, err := cpu.CountsWithContext(ctx, true)
		if err != nil {
			return health.SystemInfo{}, fmt.Errorf("cpu count: %w", err)
		}
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return health.SystemInfo{}, fmt.Errorf("virtual memory: %w", err)
		}
		usage, err := disk.UsageWithContext(ctx, diskPath)
		if err != nil {
			return health.SystemInfo{}, fmt.Errorf("disk usage %s: %w", diskPath, err)
		}

		info := health.SystemInfo{
			Platform:        hi.Platform,
			OS:              hi.OS,
			PlatformVersion: hi.PlatformVersion,
			KernelVersion:   hi.KernelVersion,
			Hostname:        hi.Hostname,
			UptimeSeconds:   hi.Uptime,
			LoadAverage:     [3]float64{avg.Load1, avg.Load5, avg.Load15},
			CPUCount:        cpus,
			MemoryTotal:     vm.Total,
			DiskTotal:       usage.Total,
		}
		if model != nil {
			info.DeviceModel = model(ctx)
		}
		return info, nil
	}
}

// DeviceTreeModel reads the board model from the device tree under root
// (normally "/sys"), as exposed by ARM boards.
func DeviceTreeModel(root string) ModelFunc {
	if root == "" {
		root = "/sys"
	}
	return func(context.Context) string {
		raw, err := os.ReadFile(filepath.Join(root, "firmware", "devicetree", "base", "model"))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(bytes.TrimRight(raw, "\x00")))
	}
}

// SysctlModel reads the hardware model via `sysctl -n hw.model`.
func SysctlModel(run CommandRunner) ModelFunc {
	if run == nil {
		run = ExecRunner
	}
	return func(ctx context.Context) string {
		out, err := run(ctx, "sysctl", "-n", "hw.model")
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	}
}
