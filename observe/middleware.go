package observe

import (
	"context"
	"time"
)

// ProbeFunc is the signature of a probe execution.
type ProbeFunc func(ctx context.Context) (any, error)

// Middleware wraps probe execution with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a ProbeFunc safe for concurrent use.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver builds a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap instruments fn for the probe described by meta.
func (m *Middleware) Wrap(meta ProbeMeta, fn ProbeFunc) ProbeFunc {
	logger := m.logger.WithProbe(meta)
	return func(ctx context.Context) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordProbe(ctx, meta, duration, err)

		fields := []Field{F("duration_ms", float64(duration.Microseconds())/1000)}
		if err != nil {
			fields = append(fields, F("error", err))
			logger.Warn(ctx, "probe failed", fields...)
		} else {
			logger.Debug(ctx, "probe completed", fields...)
		}

		return result, err
	}
}
