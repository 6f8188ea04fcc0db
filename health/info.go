package health

// SystemInfo is static host information reported alongside a Score.
// It does not take part in scoring.
type SystemInfo struct {
	Platform        string     `json:"platform"`
	OS              string     `json:"os"`
	PlatformVersion string     `json:"platform_version,omitempty"`
	KernelVersion   string     `json:"kernel_version,omitempty"`
	Hostname        string     `json:"hostname,omitempty"`
	DeviceModel     string     `json:"device_model,omitempty"`
	UptimeSeconds   uint64     `json:"uptime_seconds"`
	LoadAverage     [3]float64 `json:"load_average"`
	CPUCount        int        `json:"cpu_count"`
	MemoryTotal     uint64     `json:"memory_total"`
	DiskTotal       uint64     `json:"disk_total"`
}
