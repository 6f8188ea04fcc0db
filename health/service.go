package health

// ServiceHealth is the normalized health of the device's main service.
// It is implemented only by MacHealth and PiHealth.
type ServiceHealth interface {
	// ServiceName is the human name used in warnings ("tracker", "player").
	ServiceName() string
	// Healthy reports whether the service is running.
	Healthy() bool

	serviceHealth()
}

// MacHealth describes the tracker agent managed by launchd.
type MacHealth struct {
	Label          string `json:"label"`
	Running        bool   `json:"running"`
	PID            int    `json:"pid,omitempty"`
	LastExitStatus int    `json:"last_exit_status"`
}

func (MacHealth) ServiceName() string { return "tracker" }
func (h MacHealth) Healthy() bool     { return h.Running }
func (MacHealth) serviceHealth()      {}

// PiHealth describes the player unit managed by systemd.
type PiHealth struct {
	Unit        string `json:"unit"`
	ActiveState string `json:"active_state"`
}

func (PiHealth) ServiceName() string { return "player" }
func (h PiHealth) Healthy() bool     { return h.ActiveState == "active" }
func (PiHealth) serviceHealth()      {}

// Display describes the attached displays.
type Display struct {
	Connected bool     `json:"connected"`
	Displays  []string `json:"displays,omitempty"`
	Headless  bool     `json:"headless"`
}

// IsHeadless reports whether no display is expected: either configured as
// headless or nothing connected and nothing listed.
func (d Display) IsHeadless() bool {
	return d.Headless || (!d.Connected && len(d.Displays) == 0)
}
