package health

import "errors"

var (
	// ErrNilSnapshot indicates a Reading without metrics.
	ErrNilSnapshot = errors.New("health: metric snapshot is nil")

	// ErrMalformedSnapshot indicates a snapshot section of the wrong shape.
	ErrMalformedSnapshot = errors.New("health: malformed metric snapshot")

	// ErrInvalidWeights indicates a weight table that does not sum to 1.
	ErrInvalidWeights = errors.New("health: invalid weights")

	// ErrInvalidThresholds indicates a threshold with warning >= critical.
	ErrInvalidThresholds = errors.New("health: invalid thresholds")

	// ErrNoReading indicates no reading has been collected successfully yet.
	ErrNoReading = errors.New("health: no reading available")
)
