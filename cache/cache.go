package cache

import (
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/devicestatus/observe"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// NoExpiry requests an entry that never expires when passed as a TTL to the Manager.
const NoExpiry time.Duration = -1

// Well-known cache types with their own configured TTL.
const (
	TypeDefault       = "default"
	TypeHealthMetrics = "health_metrics"
	TypeServiceStatus = "service_status"
	TypeSystemInfo    = "system_info"
)

// Sentinel errors for cache operations.
var (
	ErrInvalidKey     = errors.New("cache: key is invalid")
	ErrKeyTooLong     = errors.New("cache: key exceeds max length")
	ErrInvalidPattern = errors.New("cache: invalid glob pattern")
	ErrDisabled       = errors.New("cache: caching is disabled")
	ErrInvalidSize    = errors.New("cache: max size must be at least 1")
)

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Option configures a Store or a Manager.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger observe.Logger
	meter  metric.Meter
}

// WithClock sets the time source used for expiry and LRU bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used by the Manager.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeter sets the meter used for the Manager's counters.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
