package collect

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"

	"github.com/jonwraymond/devicestatus/cache"
	"github.com/jonwraymond/devicestatus/health"
)

// CPUProbe samples overall CPU utilisation over the sample window.
// A zero window compares against the previous call.
func CPUProbe(sample time.Duration) MetricProbe {
	return MetricProbe{
		Component: health.ComponentCPU,
		Name:      "gopsutil",
		CacheType: cache.TypeHealthMetrics,
		Fn: func(ctx context.Context) (map[string]any, error) {
			pct, err := cpu.PercentWithContext(ctx, sample, false)
			if err != nil {
				return nil, fmt.Errorf("cpu percent: %w", err)
			}
			if len(pct) == 0 {
				return nil, fmt.Errorf("cpu percent: no samples")
			}
			return health.ResourceSection(pct[0]), nil
		},
	}
}

// MemoryProbe reports used virtual memory.
func MemoryProbe() MetricProbe {
	return MetricProbe{
		Component: health.ComponentMemory,
		Name:      "gopsutil",
		CacheType: cache.TypeHealthMetrics,
		Fn: func(ctx context.Context) (map[string]any, error) {
			vm, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return nil, fmt.Errorf("virtual memory: %w", err)
			}
			section := health.ResourceSection(vm.UsedPercent)
			section["total"] = vm.Total
			section["available"] = vm.Available
			return section, nil
		},
	}
}

// DiskProbe reports used space on the filesystem holding path.
func DiskProbe(path string) MetricProbe {
	if path == "" {
		path = "/"
	}
	return MetricProbe{
		Component: health.ComponentDisk,
		Name:      "gopsutil",
		CacheType: cache.TypeHealthMetrics,
		Fn: func(ctx context.Context) (map[string]any, error) {
			usage, err := disk.UsageWithContext(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("disk usage %s: %w", path, err)
			}
			section := health.ResourceSection(usage.UsedPercent)
			section["path"] = usage.Path
			section["free"] = usage.Free
			return section, nil
		},
	}
}

// NetworkProbe reports the up flag of every non-loopback interface.
func NetworkProbe() MetricProbe {
	return MetricProbe{
		Component: health.ComponentNetwork,
		Name:      "gopsutil",
		CacheType: cache.TypeHealthMetrics,
		Fn: func(ctx context.Context) (map[string]any, error) {
			ifaces, err := net.InterfacesWithContext(ctx)
			if err != nil {
				return nil, fmt.Errorf("network interfaces: %w", err)
			}
			return health.NetworkSection(interfaceStates(ifaces)), nil
		},
	}
}

func interfaceStates(ifaces net.InterfaceStatList) map[string]bool {
	up := make(map[string]bool, len(ifaces))
	for _, iface := range ifaces {
		if slices.Contains(iface.Flags, "loopback") {
			continue
		}
		up[iface.Name] = slices.Contains(iface.Flags, "up")
	}
	return up
}

// SystemProbes returns the cpu, memory, disk and network probes.
func SystemProbes(cpuSample time.Duration, diskPath string) []MetricProbe {
	return []MetricProbe{
		CPUProbe(cpuSample),
		MemoryProbe(),
		DiskProbe(diskPath),
		NetworkProbe(),
	}
}
