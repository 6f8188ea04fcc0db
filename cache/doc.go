// Package cache provides an in-process TTL/LRU cache for expensive probes.
//
// Store is the bounded key/entry map: entries expire lazily after their TTL
// and the least recently accessed entry is evicted when a new key arrives at
// capacity. Manager layers per-type TTL policy, hit/miss statistics, glob
// invalidation and memoization on top. The Manager is fail-open: internal
// faults are logged and degrade to a cache miss.
//
//	m, _ := cache.NewManager(cache.DefaultConfig(), cache.WithLogger(logger))
//	cpuPercent := cache.Memoize(m, "cpu", sampleCPU, cache.MemoizeOptions[string]{
//		CacheType: cache.TypeHealthMetrics,
//	})
package cache
