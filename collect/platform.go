package collect

import (
	"fmt"
	"runtime"
	"time"
)

// Supported platforms.
const (
	PlatformLinux  = "linux"
	PlatformDarwin = "darwin"
)

// SystemConfig selects the host probes.
type SystemConfig struct {
	// Platform is linux, darwin or empty for the running OS.
	Platform string
	// DiskPath is the filesystem reported as disk usage.
	DiskPath string
	// CPUSample is the CPU measurement window.
	CPUSample time.Duration
	// ServiceUnit is the systemd unit (linux) or launchd label (darwin) of
	// the main service. Empty disables the service probe.
	ServiceUnit string
	// Headless marks a device with no display expected.
	Headless bool
	// SysRoot is the sysfs mount point used for display detection on linux.
	SysRoot string
}

// NewSystem returns a Collector with the gopsutil metric and system info
// probes plus the platform's service and display probes. run executes external commands;
// nil uses ExecRunner.
func NewSystem(cfg Config, sys SystemConfig, run CommandRunner, opts ...Option) (*Collector, error) {
	platform := sys.Platform
	if platform == "" {
		platform = runtime.GOOS
	}

	c := New(cfg, opts...)
	for _, p := range SystemProbes(sys.CPUSample, sys.DiskPath) {
		if err := c.Register(p); err != nil {
			return nil, err
		}
	}

	switch platform {
	case PlatformLinux:
		if sys.ServiceUnit != "" {
			c.SetService("systemd", SystemdProbe(run, sys.ServiceUnit))
		}
		c.SetDisplay("drm", DRMDisplayProbe(sys.SysRoot, sys.Headless))
		c.SetInfo("gopsutil", SystemInfoProbe(sys.DiskPath, DeviceTreeModel(sys.SysRoot)))
	case PlatformDarwin:
		if sys.ServiceUnit != "" {
			c.SetService("launchd", LaunchdProbe(run, sys.ServiceUnit))
		}
		c.SetDisplay("system_profiler", ProfilerDisplayProbe(run, sys.Headless))
		c.SetInfo("gopsutil", SystemInfoProbe(sys.DiskPath, SysctlModel(run)))
	default:
		return nil, fmt.Errorf("collect: unsupported platform %q", platform)
	}
	return c, nil
}
