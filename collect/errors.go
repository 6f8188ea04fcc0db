package collect

import "errors"

var (
	// ErrNoProbes indicates Collect was called with nothing registered.
	ErrNoProbes = errors.New("collect: no probes registered")

	// ErrAllProbesFailed indicates every metric probe failed.
	ErrAllProbesFailed = errors.New("collect: all metric probes failed")

	// ErrProbeTimeout indicates a probe exceeded its timeout.
	ErrProbeTimeout = errors.New("collect: probe timed out")

	// ErrProbeSuspended indicates a probe's circuit breaker is open.
	ErrProbeSuspended = errors.New("collect: probe suspended after repeated failures")

	// ErrDuplicateProbe indicates a component was registered twice.
	ErrDuplicateProbe = errors.New("collect: probe already registered for component")

	// ErrInvalidProbe indicates a probe without a component or function.
	ErrInvalidProbe = errors.New("collect: invalid probe")
)
