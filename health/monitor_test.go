package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type scriptedSource struct {
	readings []Reading
	errs     []error
	calls    int
}

func (s *scriptedSource) Collect(context.Context) (Reading, error) {
	i := s.calls
	s.calls++
	return s.readings[i], s.errs[i]
}

func TestMonitor_ServesStaleReportOnFailure(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		readings: []Reading{
			{Metrics: resources(10, 20, 30), CollectedAt: at},
			{},
		},
		errs: []error{nil, errors.New("collector crashed")},
	}
	m, err := NewMonitor(src, newTestScorer(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first := m.Check(ctx)
	if first.Stale || first.Error != "" {
		t.Fatalf("first report = %+v, want fresh", first)
	}
	if !first.Score.IsHealthy() {
		t.Fatalf("first status = %v, want healthy", first.Score.Status)
	}

	second := m.Check(ctx)
	if !second.Stale {
		t.Error("second report should be stale")
	}
	if second.Error != "collector crashed" {
		t.Errorf("Error = %q, want collector crashed", second.Error)
	}
	if second.Score.Overall != first.Score.Overall || !second.CollectedAt.Equal(at) {
		t.Errorf("stale report should carry the last good score and timestamp")
	}

	last, ok := m.Last()
	if !ok || last.Stale {
		t.Errorf("Last() = %+v, %v; want the fresh report", last, ok)
	}
}

func TestMonitor_FailSafeWithoutHistory(t *testing.T) {
	src := SourceFunc(func(context.Context) (Reading, error) {
		return Reading{}, errors.New("no metrics")
	})
	m, err := NewMonitor(src, newTestScorer(t))
	if err != nil {
		t.Fatal(err)
	}

	r := m.Check(context.Background())
	if !r.Score.IsCritical() || r.Score.Overall != 0 {
		t.Errorf("Score = %+v, want critical with overall 0", r.Score)
	}
	if !strings.Contains(r.Score.Error, ErrNoReading.Error()) {
		t.Errorf("Score.Error = %q, want it to mention %q", r.Score.Error, ErrNoReading)
	}
	if !r.Summary.NeedsAttention {
		t.Error("fail-safe report must need attention")
	}
	if _, ok := m.Last(); ok {
		t.Error("Last() should be empty after only failures")
	}
}

func TestMonitor_ScoringErrorDoesNotReplaceLastGood(t *testing.T) {
	src := &scriptedSource{
		readings: []Reading{
			{Metrics: resources(10, 10, 10)},
			{Metrics: Snapshot{ComponentCPU: "broken"}},
		},
		errs: []error{nil, nil},
	}
	m, err := NewMonitor(src, newTestScorer(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	m.Check(ctx)
	bad := m.Check(ctx)
	if !bad.Score.IsCritical() || bad.Score.Error == "" {
		t.Errorf("bad report = %+v, want critical with error", bad.Score)
	}
	last, _ := m.Last()
	if !last.Score.IsHealthy() {
		t.Errorf("Last() status = %v, want the earlier healthy report", last.Score.Status)
	}
}

func TestMonitor_StampsCollectionTime(t *testing.T) {
	at := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	src := SourceFunc(func(context.Context) (Reading, error) {
		return Reading{Metrics: Snapshot{}}, nil
	})
	m, err := NewMonitor(src, newTestScorer(t), WithClock(func() time.Time { return at }))
	if err != nil {
		t.Fatal(err)
	}
	if r := m.Check(context.Background()); !r.CollectedAt.Equal(at) {
		t.Errorf("CollectedAt = %v, want %v", r.CollectedAt, at)
	}
}

func TestMonitor_CarriesSystemInfo(t *testing.T) {
	info := &SystemInfo{Platform: "linux", OS: "linux", CPUCount: 4, DeviceModel: "Orange Pi 5"}
	src := &scriptedSource{
		readings: []Reading{{Metrics: resources(10, 10, 10), Info: info}, {}},
		errs:     []error{nil, errors.New("collector crashed")},
	}
	m, err := NewMonitor(src, newTestScorer(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if r := m.Check(ctx); r.Info != info {
		t.Errorf("Info = %+v, want %+v", r.Info, info)
	}
	if r := m.Check(ctx); !r.Stale || r.Info != info {
		t.Errorf("stale report Info = %+v, want the last good info", r.Info)
	}
}

func TestMonitor_RecordsGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	src := SourceFunc(func(context.Context) (Reading, error) {
		return Reading{Metrics: resources(50, 50, 50)}, nil
	})
	m, err := NewMonitor(src, newTestScorer(t), WithMeter(mp.Meter("test")))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m.Check(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "health.score.overall" {
				continue
			}
			gauge, ok := metric.Data.(metricdata.Gauge[float64])
			if !ok || len(gauge.DataPoints) != 1 {
				t.Fatalf("unexpected gauge data %T", metric.Data)
			}
			if v := gauge.DataPoints[0].Value; v != 50 {
				t.Errorf("gauge = %v, want 50", v)
			}
			return
		}
	}
	t.Fatal("health.score.overall not recorded")
}

func TestNewMonitor_RequiresCollaborators(t *testing.T) {
	if _, err := NewMonitor(nil, newTestScorer(t)); err == nil {
		t.Error("expected error without a source")
	}
	if _, err := NewMonitor(SourceFunc(nil), nil); err == nil {
		t.Error("expected error without a scorer")
	}
}
