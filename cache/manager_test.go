package cache

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/devicestatus/observe"
)

func newTestManager(t *testing.T, cfg Config, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(cfg, opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestNewManager_InvalidSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 0
	if _, err := NewManager(cfg); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("NewManager() error = %v, want ErrInvalidSize", err)
	}
}

func TestManager_GetSet(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	if got := m.Get(ctx, "k", "fallback"); got != "fallback" {
		t.Errorf("Get on miss = %v, want fallback", got)
	}

	m.Set(ctx, "k", 42, 0)
	if got := m.Get(ctx, "k", nil); got != 42 {
		t.Errorf("Get after Set = %v, want 42", got)
	}

	if !m.Delete(ctx, "k") {
		t.Error("Delete should report true for present key")
	}
	if m.Delete(ctx, "k") {
		t.Error("Delete should report false for absent key")
	}
}

func TestManager_DefaultTTLApplied(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t, DefaultConfig(), WithClock(clock.Now))
	ctx := context.Background()

	m.Set(ctx, "default", 1, 0)
	m.SetTyped(ctx, "info", 2, 0, TypeSystemInfo)
	m.Set(ctx, "forever", 3, NoExpiry)

	clock.Advance(31 * time.Second)
	if got := m.Get(ctx, "default", nil); got != nil {
		t.Errorf("default-TTL entry = %v after 31s, want expired", got)
	}
	if got := m.Get(ctx, "info", nil); got != 2 {
		t.Errorf("system_info entry = %v after 31s, want 2", got)
	}

	clock.Advance(24 * time.Hour)
	if got := m.Get(ctx, "forever", nil); got != 3 {
		t.Errorf("NoExpiry entry = %v, want 3", got)
	}
}

func TestManager_Stats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 2
	clock := newFakeClock()
	m := newTestManager(t, cfg, WithClock(clock.Now))
	ctx := context.Background()

	empty := m.Stats()
	if empty.HitRatePercent != 0 {
		t.Errorf("HitRatePercent with no requests = %v, want 0", empty.HitRatePercent)
	}

	m.Set(ctx, "a", 1, 0)
	m.Set(ctx, "b", 2, 0)
	clock.Advance(time.Second)
	m.Get(ctx, "a", nil)
	m.Get(ctx, "a", nil)
	m.Get(ctx, "missing", nil)
	m.Set(ctx, "c", 3, 0) // evicts b
	m.Delete(ctx, "c")

	want := Stats{
		Hits:           2,
		Misses:         1,
		HitRatePercent: 66.67,
		Sets:           3,
		Deletes:        1,
		Evictions:      1,
		CurrentSize:    1,
		MaxSize:        2,
		Enabled:        true,
	}
	if got := m.Stats(); got != want {
		t.Errorf("Stats() = %+v\nwant %+v", got, want)
	}
}

func TestManager_InvalidatePattern(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	for _, k := range []string{
		"memo:cpu:1", "memo:cpu:2", "memo:disk:/data", "service:tracker", "memo:display:x",
	} {
		m.Set(ctx, k, true, 0)
	}

	tests := []struct {
		pattern string
		want    int
		left    []string
	}{
		{"memo:cpu:*", 2, []string{"memo:disk:/data", "memo:display:x", "service:tracker"}},
		{"memo:di?k:*", 1, []string{"memo:display:x", "service:tracker"}},
		{"nothing*", 0, []string{"memo:display:x", "service:tracker"}},
		{"*", 2, []string{}},
	}
	for _, tt := range tests {
		got := m.InvalidatePattern(ctx, tt.pattern)
		if got != tt.want {
			t.Errorf("InvalidatePattern(%q) = %d, want %d", tt.pattern, got, tt.want)
		}
		if keys := m.Keys(ctx); !reflect.DeepEqual(keys, tt.left) {
			t.Errorf("after %q Keys() = %v, want %v", tt.pattern, keys, tt.left)
		}
	}

	if got := m.Stats().Deletes; got != 5 {
		t.Errorf("Deletes = %d, want 5", got)
	}
}

func TestManager_InvalidPatternFailsOpen(t *testing.T) {
	var buf bytes.Buffer
	m := newTestManager(t, DefaultConfig(), WithLogger(observe.NewLoggerWithWriter("debug", &buf)))
	ctx := context.Background()
	m.Set(ctx, "a", 1, 0)

	if got := m.InvalidatePattern(ctx, "[unclosed"); got != 0 {
		t.Errorf("InvalidatePattern(bad) = %d, want 0", got)
	}
	if !strings.Contains(buf.String(), ErrInvalidPattern.Error()) {
		t.Errorf("expected invalid pattern to be logged, got: %s", buf.String())
	}
	if m.Get(ctx, "a", nil) != 1 {
		t.Error("entries must survive a failed invalidation")
	}
}

func TestManager_InvalidKeyFailsOpen(t *testing.T) {
	var buf bytes.Buffer
	m := newTestManager(t, DefaultConfig(), WithLogger(observe.NewLoggerWithWriter("error", &buf)))
	ctx := context.Background()

	m.Set(ctx, "", "value", 0)
	if got := m.Get(ctx, "", "default"); got != "default" {
		t.Errorf("Get(\"\") = %v, want default", got)
	}
	if m.Stats().Sets != 0 {
		t.Error("invalid key must not be stored")
	}
	if !strings.Contains(buf.String(), "cache operation failed") {
		t.Errorf("expected fault to be logged, got: %s", buf.String())
	}
}

func TestManager_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := newTestManager(t, cfg)
	ctx := context.Background()

	m.Set(ctx, "k", 1, 0)
	if got := m.Get(ctx, "k", "default"); got != "default" {
		t.Errorf("Get on disabled manager = %v, want default", got)
	}
	stats := m.Stats()
	if stats.Enabled || stats.CurrentSize != 0 || stats.Sets != 0 {
		t.Errorf("Stats() = %+v, want disabled and empty", stats)
	}
	if n := m.Warm(ctx, func(context.Context) error { return nil }); n != 0 {
		t.Errorf("Warm on disabled manager = %d, want 0", n)
	}
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()
	m.Set(ctx, "a", 1, 0)
	m.Get(ctx, "a", nil)
	m.Clear(ctx)

	stats := m.Stats()
	if stats.CurrentSize != 0 {
		t.Errorf("CurrentSize = %d after Clear, want 0", stats.CurrentSize)
	}
	if stats.Hits != 1 {
		t.Errorf("Hits = %d after Clear, want 1 (counters preserved)", stats.Hits)
	}
}

func TestGetAs(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()
	m.Set(ctx, "pct", 12.5, 0)

	if v, ok := GetAs[float64](ctx, m, "pct"); !ok || v != 12.5 {
		t.Errorf("GetAs[float64] = %v, %v", v, ok)
	}
	if _, ok := GetAs[string](ctx, m, "pct"); ok {
		t.Error("GetAs with wrong type should report false")
	}
	if _, ok := GetAs[float64](ctx, m, "missing"); ok {
		t.Error("GetAs on miss should report false")
	}
	if s := m.Stats(); s.Hits != 1 || s.Misses != 2 {
		t.Errorf("hits/misses = %d/%d, want 1/2 (type mismatch is a miss)", s.Hits, s.Misses)
	}
}

func TestManager_Warm(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	ctx := context.Background()

	n := m.Warm(ctx,
		func(ctx context.Context) error { m.Set(ctx, "a", 1, 0); return nil },
		func(context.Context) error { return errors.New("unavailable") },
		func(context.Context) error { panic("boom") },
		func(ctx context.Context) error { m.Set(ctx, "b", 2, 0); return nil },
	)
	if n != 2 {
		t.Errorf("Warm() = %d, want 2", n)
	}
	if got := m.Keys(ctx); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
}

func TestManager_Concurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 32
	m := newTestManager(t, cfg)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := string(rune('a' + (g+i)%26))
				m.Set(ctx, key, i, 0)
				m.Get(ctx, key, nil)
			}
		}(g)
	}
	wg.Wait()

	stats := m.Stats()
	if stats.Hits+stats.Misses != 800 {
		t.Errorf("hits+misses = %d, want 800", stats.Hits+stats.Misses)
	}
}

func TestManager_RecordsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	cfg := DefaultConfig()
	cfg.MaxSize = 1
	m := newTestManager(t, cfg, WithMeter(mp.Meter("test")))
	ctx := context.Background()

	m.Set(ctx, "a", 1, 0)
	m.Get(ctx, "a", nil)
	m.Get(ctx, "b", nil)
	m.Set(ctx, "b", 2, 0)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[metric.Name] += dp.Value
				}
			}
		}
	}
	want := map[string]int64{"cache.hits": 1, "cache.misses": 1, "cache.sets": 2, "cache.evictions": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("counters = %v, want %v", got, want)
	}
}
