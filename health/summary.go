package health

import "strings"

// Summary is the human-readable digest of a Score.
type Summary struct {
	NeedsAttention  bool     `json:"needs_attention"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// Summarize derives one warning and one recommendation per breached
// component. A display breach is suppressed on headless devices.
func Summarize(s Score) Summary {
	out := Summary{
		NeedsAttention:  s.Status != StatusHealthy,
		Warnings:        []string{},
		Recommendations: []string{},
	}

	if s.Error != "" {
		out.Warnings = append(out.Warnings, "Health scoring failed: "+s.Error)
		out.Recommendations = append(out.Recommendations, "Check metrics collection")
		return out
	}

	for _, b := range s.Breaches {
		warning, recommendation, ok := advice(b.Component, s)
		if !ok {
			continue
		}
		out.Warnings = append(out.Warnings, warning)
		out.Recommendations = append(out.Recommendations, recommendation)
	}
	return out
}

func advice(component string, s Score) (warning, recommendation string, ok bool) {
	switch component {
	case ComponentCPU:
		return "High CPU usage", "Reduce CPU load or scale resources", true
	case ComponentMemory:
		return "High memory usage", "Free up memory or add more RAM", true
	case ComponentDisk:
		return "Low disk space", "Free up disk space", true
	case ComponentNetwork:
		return "Network interfaces down", "Check network interfaces and cabling", true
	case ComponentService:
		name := s.Service
		if name == "" {
			name = "service"
		}
		return capitalize(name) + " is not running", "Check " + name + " status and restart if necessary", true
	case ComponentDisplay:
		if s.Headless {
			return "", "", false
		}
		return "Display not connected", "Verify display connection", true
	default:
		return "", "", false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
