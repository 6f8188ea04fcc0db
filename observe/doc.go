// Package observe provides observability primitives for the device agent.
//
// It wires OpenTelemetry tracing and metrics, a zap-backed structured logger,
// and a Middleware that wraps probe execution with a span, execution metrics
// and a log line. It performs no I/O beyond exporter setup; collectors and the
// health monitor consume the Observer handed to them at startup.
package observe
