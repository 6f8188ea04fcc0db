package health

import (
	"fmt"
	"math"
)

// Status is the classified health of a Score.
type Status int

const (
	// StatusHealthy indicates no component crossed its warning bound.
	StatusHealthy Status = iota
	// StatusWarning indicates exactly one component crossed its warning bound.
	StatusWarning
	// StatusCritical indicates a critical breach, several warning breaches,
	// or a scoring failure.
	StatusCritical
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Breach records a component whose usage reached a threshold.
type Breach struct {
	Component string  `json:"component"`
	Level     Status  `json:"level"`
	Usage     float64 `json:"usage"`
}

// Score is the outcome of scoring one Reading.
type Score struct {
	// Components holds a 0-100 score per component; unmeasured ones are 100.
	Components map[string]float64 `json:"components"`
	Overall    float64            `json:"overall"`
	Status     Status             `json:"status"`
	Breaches   []Breach           `json:"breaches,omitempty"`

	// Service is the name of the scored service, if any.
	Service  string `json:"service,omitempty"`
	Headless bool   `json:"headless"`

	// Unmeasured lists components whose probe reported an error.
	Unmeasured []string `json:"unmeasured,omitempty"`

	// Error is set when the input could not be scored.
	Error string `json:"error,omitempty"`
}

// IsHealthy reports whether the status is healthy.
func (s Score) IsHealthy() bool { return s.Status == StatusHealthy }

// IsCritical reports whether the status is critical.
func (s Score) IsCritical() bool { return s.Status == StatusCritical }

// Breached returns the breach for component, if any.
func (s Score) Breached(component string) (Breach, bool) {
	for _, b := range s.Breaches {
		if b.Component == component {
			return b, true
		}
	}
	return Breach{}, false
}

// Failed returns the fail-safe Score for an input that could not be scored.
func Failed(err error) Score {
	return Score{
		Components: map[string]float64{},
		Overall:    0,
		Status:     StatusCritical,
		Error:      err.Error(),
	}
}

// Scorer maps Readings to Scores under fixed weights and thresholds.
//
// Contract:
//   - Concurrency: safe for concurrent use; Score does not mutate the Scorer.
//   - Errors: Score never panics and never returns an error; see Score.Error.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer validates the tables and returns a Scorer. Nil tables fall back
// to DefaultWeights and DefaultThresholds.
func NewScorer(weights Weights, thresholds Thresholds) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights, thresholds: thresholds}, nil
}

// measurement is one component's outcome during scoring.
type measurement struct {
	score    float64
	usage    float64
	measured bool
}

// Score computes the health of r.
func (s *Scorer) Score(r Reading) (out Score) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Failed(fmt.Errorf("%w: %v", ErrMalformedSnapshot, rec))
		}
	}()

	if r.Metrics == nil {
		return Failed(ErrNilSnapshot)
	}

	out.Components = make(map[string]float64, len(Components))
	results := make(map[string]measurement, len(Components))

	for _, c := range []string{ComponentCPU, ComponentMemory, ComponentDisk} {
		m, unmeasured, err := scoreResource(r.Metrics, c)
		if err != nil {
			return Failed(err)
		}
		if unmeasured {
			out.Unmeasured = append(out.Unmeasured, c)
		}
		results[c] = m
	}

	m, unmeasured, err := scoreNetwork(r.Metrics)
	if err != nil {
		return Failed(err)
	}
	if unmeasured {
		out.Unmeasured = append(out.Unmeasured, ComponentNetwork)
	}
	results[ComponentNetwork] = m

	if r.Service != nil {
		out.Service = r.Service.ServiceName()
		score := 0.0
		if r.Service.Healthy() {
			score = 100
		}
		results[ComponentService] = measurement{score: score, usage: 100 - score, measured: true}
	}

	if r.Display != nil {
		out.Headless = r.Display.IsHeadless()
		score := 0.0
		if r.Display.Connected || out.Headless {
			score = 100
		}
		results[ComponentDisplay] = measurement{score: score, usage: 100 - score, measured: true}
	}

	var weighted, totalWeight float64
	warnings, criticals := 0, 0
	for _, c := range Components {
		m, ok := results[c]
		if !ok || !m.measured {
			out.Components[c] = 100
			continue
		}
		out.Components[c] = round2(m.score)

		if w := s.weights[c]; w > 0 {
			weighted += m.score * w
			totalWeight += w
		}

		th, ok := s.thresholds[c]
		if !ok {
			continue
		}
		switch {
		case m.usage >= th.Critical:
			criticals++
			out.Breaches = append(out.Breaches, Breach{Component: c, Level: StatusCritical, Usage: round2(m.usage)})
		case m.usage >= th.Warning:
			warnings++
			out.Breaches = append(out.Breaches, Breach{Component: c, Level: StatusWarning, Usage: round2(m.usage)})
		}
	}

	out.Overall = 100
	if totalWeight > 0 {
		out.Overall = round2(weighted / totalWeight)
	}

	switch {
	case criticals > 0 || warnings > 1:
		out.Status = StatusCritical
	case warnings == 1:
		out.Status = StatusWarning
	default:
		out.Status = StatusHealthy
	}
	return out
}

// section returns the map for component. present is false when the key is
// absent; errored is true when the section carries an error marker.
func section(snap Snapshot, component string) (sec map[string]any, present, errored bool, err error) {
	raw, present := snap[component]
	if !present {
		return nil, false, false, nil
	}
	sec, ok := raw.(map[string]any)
	if !ok || sec == nil {
		return nil, true, false, fmt.Errorf("%w: %s section is %T", ErrMalformedSnapshot, component, raw)
	}
	if _, errored := sec["error"]; errored {
		return sec, true, true, nil
	}
	return sec, true, false, nil
}

func scoreResource(snap Snapshot, component string) (measurement, bool, error) {
	sec, present, errored, err := section(snap, component)
	if err != nil || !present || errored {
		return measurement{}, errored, err
	}
	raw, ok := sec["percent"]
	if !ok {
		return measurement{}, false, fmt.Errorf("%w: %s percent missing", ErrMalformedSnapshot, component)
	}
	pct, ok := toFloat(raw)
	if !ok {
		return measurement{}, false, fmt.Errorf("%w: %s percent is not a number: %v", ErrMalformedSnapshot, component, raw)
	}
	return measurement{score: clamp(100 - pct), usage: pct, measured: true}, false, nil
}

func scoreNetwork(snap Snapshot) (measurement, bool, error) {
	sec, present, errored, err := section(snap, ComponentNetwork)
	if err != nil || !present || errored {
		return measurement{}, errored, err
	}

	var ifaces map[string]any
	switch v := sec["interfaces"].(type) {
	case nil:
	case map[string]any:
		ifaces = v
	default:
		return measurement{}, false, fmt.Errorf("%w: network interfaces is %T", ErrMalformedSnapshot, v)
	}

	if len(ifaces) == 0 {
		return measurement{score: 0, usage: 100, measured: true}, false, nil
	}
	up := 0
	for name, raw := range ifaces {
		iface, ok := raw.(map[string]any)
		if !ok {
			return measurement{}, false, fmt.Errorf("%w: interface %s is %T", ErrMalformedSnapshot, name, raw)
		}
		isUp, ok := iface["up"].(bool)
		if !ok {
			return measurement{}, false, fmt.Errorf("%w: interface %s up flag is %T", ErrMalformedSnapshot, name, iface["up"])
		}
		if isUp {
			up++
		}
	}
	score := float64(up) / float64(len(ifaces)) * 100
	return measurement{score: score, usage: 100 - score, measured: true}, false, nil
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
