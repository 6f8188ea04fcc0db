// Package collect gathers health Readings from the host.
//
// A Collector runs registered metric probes (cpu, memory, disk, network)
// together with optional service, display and system info probes. Probes run
// concurrently, each guarded by a timeout, bounded retry with backoff and a
// circuit breaker, instrumented through observe.Middleware, and memoized
// through the cache Manager under the probe's cache type.
//
// A failed metric probe does not fail the collection: its section is
// replaced by health.ErrorSection so the Scorer reports it as unmeasured.
// Collect fails only when every metric probe failed.
package collect
