package cache

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// instruments holds the Manager's OpenTelemetry counters.
type instruments struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	sets      metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("noop")
	}

	counter := func(name, desc string) (metric.Int64Counter, error) {
		return meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{op}"))
	}

	hits, err := counter("cache.hits", "Cache lookups that found a live entry")
	if err != nil {
		return nil, err
	}
	misses, err := counter("cache.misses", "Cache lookups that found nothing")
	if err != nil {
		return nil, err
	}
	evictions, err := counter("cache.evictions", "Entries evicted to make room")
	if err != nil {
		return nil, err
	}
	sets, err := counter("cache.sets", "Entries written to the cache")
	if err != nil {
		return nil, err
	}

	return &instruments{hits: hits, misses: misses, evictions: evictions, sets: sets}, nil
}
