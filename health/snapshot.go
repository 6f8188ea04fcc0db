package health

import (
	"encoding/json"
	"math"
	"time"
)

// Components scored by the Scorer.
const (
	ComponentCPU     = "cpu"
	ComponentMemory  = "memory"
	ComponentDisk    = "disk"
	ComponentNetwork = "network"
	ComponentService = "service"
	ComponentDisplay = "display"
)

// Components lists every component in reporting order.
var Components = []string{
	ComponentCPU,
	ComponentMemory,
	ComponentDisk,
	ComponentNetwork,
	ComponentService,
	ComponentDisplay,
}

// Snapshot is the raw metric map handed over by a collector:
//
//	{"cpu": {"percent": 12.5}, "memory": {"percent": 40}, "disk": {"percent": 71},
//	 "network": {"interfaces": {"eth0": {"up": true}}}}
//
// A section may instead carry {"error": "..."} when its probe failed.
type Snapshot map[string]any

// ResourceSection builds a cpu, memory or disk section.
func ResourceSection(percent float64) map[string]any {
	return map[string]any{"percent": percent}
}

// NetworkSection builds a network section from interface up flags.
func NetworkSection(up map[string]bool) map[string]any {
	ifaces := make(map[string]any, len(up))
	for name, isUp := range up {
		ifaces[name] = map[string]any{"up": isUp}
	}
	return map[string]any{"interfaces": ifaces}
}

// ErrorSection marks a section whose probe failed.
func ErrorSection(err error) map[string]any {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return map[string]any{"error": msg}
}

// Reading is one collection pass.
type Reading struct {
	Metrics     Snapshot
	Service     ServiceHealth // nil when not probed
	Display     *Display      // nil when not probed
	Info        *SystemInfo   // nil when not probed
	CollectedAt time.Time
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
