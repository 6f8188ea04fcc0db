package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/jonwraymond/devicestatus/observe"
)

// Source produces Readings.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a non-nil error means the Reading must not be scored.
type Source interface {
	Collect(ctx context.Context) (Reading, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Reading, error)

// Collect calls f.
func (f SourceFunc) Collect(ctx context.Context) (Reading, error) { return f(ctx) }

// Report is the outcome of one Monitor check.
type Report struct {
	Score       Score       `json:"score"`
	Summary     Summary     `json:"summary"`
	Info        *SystemInfo `json:"info,omitempty"`
	CollectedAt time.Time   `json:"collected_at"`

	// Stale is true when this is the last good report served because the
	// current collection failed.
	Stale bool   `json:"stale"`
	Error string `json:"error,omitempty"`
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithLogger sets the Monitor's logger.
func WithLogger(l observe.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMeter sets the meter used for the overall score gauge.
func WithMeter(meter metric.Meter) MonitorOption {
	return func(m *Monitor) {
		if meter != nil {
			m.meter = meter
		}
	}
}

// WithClock sets the Monitor's time source.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor collects, scores and summarizes device health.
type Monitor struct {
	source Source
	scorer *Scorer
	logger observe.Logger
	meter  metric.Meter
	gauge  metric.Float64Gauge
	now    func() time.Time

	mu   sync.Mutex
	last *Report
}

// NewMonitor creates a Monitor.
func NewMonitor(source Source, scorer *Scorer, opts ...MonitorOption) (*Monitor, error) {
	if source == nil || scorer == nil {
		return nil, fmt.Errorf("health: monitor requires a source and a scorer")
	}
	m := &Monitor{
		source: source,
		scorer: scorer,
		logger: observe.NopLogger(),
		meter:  noop.NewMeterProvider().Meter("noop"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	gauge, err := m.meter.Float64Gauge(
		"health.score.overall",
		metric.WithDescription("Weighted overall device health score"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("health: failed to create gauge: %w", err)
	}
	m.gauge = gauge
	return m, nil
}

// Check runs one collection and returns its Report. When collection fails it
// returns the last good Report marked Stale, or a critical Report if there
// has been no good collection yet.
func (m *Monitor) Check(ctx context.Context) Report {
	reading, err := m.source.Collect(ctx)
	if err != nil {
		return m.fallback(ctx, err)
	}

	if reading.CollectedAt.IsZero() {
		reading.CollectedAt = m.now()
	}
	score := m.scorer.Score(reading)
	report := Report{
		Score:       score,
		Summary:     Summarize(score),
		Info:        reading.Info,
		CollectedAt: reading.CollectedAt,
	}
	m.record(ctx, report)

	if score.Error != "" {
		m.logger.Error(ctx, "health scoring failed", observe.F("error", score.Error))
		return report
	}

	m.mu.Lock()
	m.last = &report
	m.mu.Unlock()

	m.logger.Debug(ctx, "health checked",
		observe.F("overall", score.Overall),
		observe.F("status", score.Status.String()),
	)
	return report
}

// Last returns the most recent good Report.
func (m *Monitor) Last() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Report{}, false
	}
	return *m.last, true
}

func (m *Monitor) fallback(ctx context.Context, cause error) Report {
	if last, ok := m.Last(); ok {
		m.logger.Warn(ctx, "health collection failed, serving last good report",
			observe.F("error", cause),
			observe.F("collected_at", last.CollectedAt),
		)
		last.Stale = true
		last.Error = cause.Error()
		return last
	}

	m.logger.Error(ctx, "health collection failed", observe.F("error", cause))
	score := Failed(fmt.Errorf("%w: %v", ErrNoReading, cause))
	report := Report{
		Score:       score,
		Summary:     Summarize(score),
		CollectedAt: m.now(),
		Error:       cause.Error(),
	}
	m.record(ctx, report)
	return report
}

func (m *Monitor) record(ctx context.Context, r Report) {
	m.gauge.Record(ctx, r.Score.Overall,
		metric.WithAttributes(attribute.String("health.status", r.Score.Status.String())),
	)
}
