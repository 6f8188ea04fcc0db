package health

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.
const WeightTolerance = 0.001

// Weights maps a component to its share of the overall score.
type Weights map[string]float64

// DefaultWeights returns the stock weight table.
func DefaultWeights() Weights {
	return Weights{
		ComponentCPU:     0.2,
		ComponentMemory:  0.2,
		ComponentDisk:    0.2,
		ComponentService: 0.2,
		ComponentNetwork: 0.1,
		ComponentDisplay: 0.1,
	}
}

// Validate checks that every weight is in [0, 1] for a known component
// and that the weights sum to 1 within WeightTolerance.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("%w: no weights", ErrInvalidWeights)
	}
	var sum float64
	for _, c := range sortedKeys(w) {
		v := w[c]
		if !knownComponent(c) {
			return fmt.Errorf("%w: unknown component %q", ErrInvalidWeights, c)
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s weight %v not in [0, 1]", ErrInvalidWeights, c, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// Threshold bounds a component's usage. Usage at or above Warning is a
// warning breach, at or above Critical a critical breach.
type Threshold struct {
	Warning  float64 `json:"warning" yaml:"warning"`
	Critical float64 `json:"critical" yaml:"critical"`
}

// Thresholds maps a component to its usage bounds. Usage is the percent
// for cpu, memory and disk, and 100 minus the score for the others.
type Thresholds map[string]Threshold

// DefaultThresholds returns the stock threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ComponentCPU:     {Warning: 80, Critical: 95},
		ComponentMemory:  {Warning: 80, Critical: 95},
		ComponentDisk:    {Warning: 85, Critical: 95},
		ComponentNetwork: {Warning: 50, Critical: 100},
		ComponentService: {Warning: 50, Critical: 100},
		ComponentDisplay: {Warning: 50, Critical: 100},
	}
}

// Validate checks 0 <= warning < critical for every known component.
func (t Thresholds) Validate() error {
	for _, c := range sortedKeys(t) {
		th := t[c]
		if !knownComponent(c) {
			return fmt.Errorf("%w: unknown component %q", ErrInvalidThresholds, c)
		}
		if th.Warning < 0 || th.Warning >= th.Critical {
			return fmt.Errorf("%w: %s requires 0 <= warning (%v) < critical (%v)",
				ErrInvalidThresholds, c, th.Warning, th.Critical)
		}
	}
	return nil
}

func knownComponent(c string) bool {
	for _, k := range Components {
		if k == c {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
