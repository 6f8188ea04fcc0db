package cache

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"

	"github.com/jonwraymond/devicestatus/observe"
)

// Config configures a Manager.
type Config struct {
	Enabled bool
	MaxSize int
	Policy  Policy
}

// DefaultConfig returns an enabled configuration holding up to 1000 entries
// under DefaultPolicy.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		MaxSize: 1000,
		Policy:  DefaultPolicy(),
	}
}

// Stats is a point-in-time view of the Manager's counters.
type Stats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	HitRatePercent float64 `json:"hit_rate_percent"`
	Sets           int64   `json:"sets"`
	Deletes        int64   `json:"deletes"`
	Evictions      int64   `json:"evictions"`
	CurrentSize    int     `json:"current_size"`
	MaxSize        int     `json:"max_size"`
	Enabled        bool    `json:"enabled"`
}

// Manager is the policy layer over a Store.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: internal faults are logged and degrade to a miss or a no-op;
//     no method returns or panics with a cache error.
type Manager struct {
	store  *Store
	cfg    Config
	logger observe.Logger
	inst   *instruments
	now    func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
}

// NewManager constructs a Manager. It fails only on invalid configuration.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.MaxSize < 1 {
		return nil, fmt.Errorf("%w, got: %d", ErrInvalidSize, cfg.MaxSize)
	}
	o := buildOptions(opts)
	inst, err := newInstruments(o.meter)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create instruments: %w", err)
	}
	return &Manager{
		store:  NewStore(cfg.MaxSize, WithClock(o.now)),
		cfg:    cfg,
		logger: o.logger,
		inst:   inst,
		now:    o.now,
	}, nil
}

// Enabled reports whether caching is active.
func (m *Manager) Enabled() bool { return m.cfg.Enabled }

// Policy returns the TTL policy in effect.
func (m *Manager) Policy() Policy { return m.cfg.Policy }

// Get returns the cached value for key, or def on a miss or internal fault.
func (m *Manager) Get(ctx context.Context, key string, def any) any {
	if v, ok := m.lookup(ctx, key, nil); ok {
		return v
	}
	return def
}

// GetAs returns the cached value for key when it holds a T. A value of
// another type counts as a miss.
func GetAs[T any](ctx context.Context, m *Manager, key string) (T, bool) {
	var zero T
	v, ok := m.lookup(ctx, key, func(v any) bool {
		if v == nil {
			return true
		}
		_, ok := v.(T)
		return ok
	})
	if !ok || v == nil {
		return zero, ok
	}
	return v.(T), true
}

// lookup reads key, counting a hit or a miss. When accept is non-nil a value
// it rejects is reported and counted as a miss.
func (m *Manager) lookup(ctx context.Context, key string, accept func(any) bool) (v any, ok bool) {
	if !m.cfg.Enabled {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			m.fault(ctx, "get", key, fmt.Errorf("panic: %v", r))
			v, ok = nil, false
		}
	}()

	if err := ValidateKey(key); err != nil {
		m.fault(ctx, "get", key, err)
		m.recordMiss(ctx, key)
		return nil, false
	}

	e, found := m.store.Get(key)
	if !found {
		m.recordMiss(ctx, key)
		return nil, false
	}
	if accept != nil && !accept(e.Value) {
		m.logger.Debug(ctx, "cache value type mismatch",
			observe.F("key", key),
			observe.F("type", fmt.Sprintf("%T", e.Value)),
		)
		m.recordMiss(ctx, key)
		return nil, false
	}
	m.hits.Add(1)
	m.inst.hits.Add(ctx, 1)
	m.logger.Debug(ctx, "cache hit", observe.F("key", key))
	return e.Value, true
}

func (m *Manager) recordMiss(ctx context.Context, key string) {
	m.misses.Add(1)
	m.inst.misses.Add(ctx, 1)
	m.logger.Debug(ctx, "cache miss", observe.F("key", key))
}

// Set stores value under key. A zero ttl uses the default TTL and NoExpiry
// stores the value without expiry.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	m.SetTyped(ctx, key, value, ttl, TypeDefault)
}

// SetTyped is Set with a zero ttl resolved against cacheType.
func (m *Manager) SetTyped(ctx context.Context, key string, value any, ttl time.Duration, cacheType string) {
	if !m.cfg.Enabled {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.fault(ctx, "set", key, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ValidateKey(key); err != nil {
		m.fault(ctx, "set", key, err)
		return
	}

	resolved := m.cfg.Policy.EffectiveTTL(ttl, cacheType)
	evicted, didEvict := m.store.Set(key, value, resolved)
	m.sets.Add(1)
	m.inst.sets.Add(ctx, 1)
	if didEvict {
		m.evictions.Add(1)
		m.inst.evictions.Add(ctx, 1)
		m.logger.Debug(ctx, "cache eviction", observe.F("key", evicted))
	}
}

// Delete removes key and reports whether it was present.
func (m *Manager) Delete(ctx context.Context, key string) (deleted bool) {
	defer func() {
		if r := recover(); r != nil {
			m.fault(ctx, "delete", key, fmt.Errorf("panic: %v", r))
			deleted = false
		}
	}()

	if m.store.Delete(key) {
		m.deletes.Add(1)
		return true
	}
	return false
}

// Clear removes every entry. Counters are preserved.
func (m *Manager) Clear(ctx context.Context) {
	m.store.Clear()
	m.logger.Info(ctx, "cache cleared")
}

// Keys returns the sorted keys of all live entries.
func (m *Manager) Keys(ctx context.Context) []string {
	return m.store.Keys()
}

// InvalidatePattern deletes every key matching the shell glob pattern and
// returns the number removed. "*" matches across any character, "/" included.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) int {
	g, err := glob.Compile(pattern)
	if err != nil {
		m.fault(ctx, "invalidate", pattern, fmt.Errorf("%w: %v", ErrInvalidPattern, err))
		return 0
	}

	removed := 0
	for _, key := range m.store.Keys() {
		if g.Match(key) && m.store.Delete(key) {
			removed++
		}
	}
	m.deletes.Add(int64(removed))
	m.logger.Info(ctx, "cache pattern invalidated",
		observe.F("pattern", pattern),
		observe.F("removed", removed),
	)
	return removed
}

// Stats returns the current counters. HitRatePercent is rounded to two
// decimals and is 0 before any lookup.
func (m *Manager) Stats() Stats {
	hits, misses := m.hits.Load(), m.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = math.Round(float64(hits)/float64(total)*100*100) / 100
	}
	return Stats{
		Hits:           hits,
		Misses:         misses,
		HitRatePercent: rate,
		Sets:           m.sets.Load(),
		Deletes:        m.deletes.Load(),
		Evictions:      m.evictions.Load(),
		CurrentSize:    m.store.Size(),
		MaxSize:        m.store.MaxSize(),
		Enabled:        m.cfg.Enabled,
	}
}

// WarmFunc populates the cache ahead of demand.
type WarmFunc func(ctx context.Context) error

// Warm runs each warm-up function in order and returns how many succeeded.
// Failures are logged and never abort the remaining functions.
func (m *Manager) Warm(ctx context.Context, fns ...WarmFunc) int {
	if !m.cfg.Enabled {
		m.logger.Debug(ctx, "cache warm skipped", observe.F("error", ErrDisabled))
		return 0
	}

	ok := 0
	for i, fn := range fns {
		if err := ctx.Err(); err != nil {
			m.logger.Warn(ctx, "cache warm interrupted", observe.F("error", err))
			break
		}
		if err := runWarm(ctx, fn); err != nil {
			m.logger.Warn(ctx, "cache warm function failed",
				observe.F("index", i),
				observe.F("error", err),
			)
			continue
		}
		ok++
	}
	m.logger.Info(ctx, "cache warmed", observe.F("succeeded", ok), observe.F("total", len(fns)))
	return ok
}

func runWarm(ctx context.Context, fn WarmFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (m *Manager) fault(ctx context.Context, op, key string, err error) {
	m.logger.Error(ctx, "cache operation failed",
		observe.F("op", op),
		observe.F("key", key),
		observe.F("error", err),
	)
}
