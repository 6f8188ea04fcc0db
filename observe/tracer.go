package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ProbeMeta describes a metric or service probe for telemetry purposes.
type ProbeMeta struct {
	Component string // Health component the probe feeds (cpu, memory, service, ...)
	Name      string // Probe implementation name (optional)
	CacheType string // Cache type used to memoize the probe (optional)
}

// SpanName returns the deterministic span name for this probe.
// Format: probe.<component>.<name> or probe.<component>
func (m ProbeMeta) SpanName() string {
	if m.Name != "" {
		return "probe." + m.Component + "." + m.Name
	}
	return "probe." + m.Component
}

// ProbeID returns the qualified probe identifier.
func (m ProbeMeta) ProbeID() string {
	if m.Name != "" {
		return m.Component + "/" + m.Name
	}
	return m.Component
}

// Validate reports whether the metadata carries the required fields.
func (m ProbeMeta) Validate() error {
	if m.Component == "" {
		return ErrMissingComponent
	}
	return nil
}

func (m ProbeMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("probe.id", m.ProbeID()),
		attribute.String("probe.component", m.Component),
	}
	if m.CacheType != "" {
		attrs = append(attrs, attribute.String("probe.cache_type", m.CacheType))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with probe span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta ProbeMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta ProbeMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("probe.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("probe.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a Tracer that records nothing.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
