package collect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/devicestatus/cache"
	"github.com/jonwraymond/devicestatus/health"
	"github.com/jonwraymond/devicestatus/observe"
)

// MetricFunc samples one snapshot section, e.g. health.ResourceSection(42).
type MetricFunc func(ctx context.Context) (map[string]any, error)

// ServiceFunc reports the health of the device's main service.
type ServiceFunc func(ctx context.Context) (health.ServiceHealth, error)

// DisplayFunc reports the attached displays.
type DisplayFunc func(ctx context.Context) (health.Display, error)

// InfoFunc reports static host information.
type InfoFunc func(ctx context.Context) (health.SystemInfo, error)

// MetricProbe samples one snapshot component.
type MetricProbe struct {
	Component string // snapshot key: cpu, memory, disk, network
	Name      string // implementation name used in telemetry
	CacheType string // cache type whose TTL applies; defaults to health_metrics
	Fn        MetricFunc
}

// Config configures a Collector.
type Config struct {
	// ProbeTimeout bounds each probe attempt. Zero disables the timeout.
	ProbeTimeout time.Duration

	// Retry configures per-probe retries.
	Retry Backoff

	// BreakerFailures is the number of consecutive failed collections after
	// which a probe is suspended. Default: 5
	BreakerFailures int

	// BreakerCoolDown is how long a suspended probe stays suspended.
	// Default: 30s
	BreakerCoolDown time.Duration

	// Concurrency limits probes running at once. Zero means unlimited.
	Concurrency int
}

// DefaultConfig returns a 5s timeout with two attempts per probe.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:    5 * time.Second,
		Retry:           Backoff{Attempts: 2, Initial: 200 * time.Millisecond, Max: 2 * time.Second, Jitter: true},
		BreakerFailures: 5,
		BreakerCoolDown: 30 * time.Second,
	}
}

// Option configures a Collector.
type Option func(*Collector)

// WithCache memoizes probe results through m.
func WithCache(m *cache.Manager) Option {
	return func(c *Collector) { c.cache = m }
}

// WithMiddleware instruments probes with mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Collector) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// WithLogger sets the Collector's logger.
func WithLogger(l observe.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source used for CollectedAt and breakers.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// probe is a registered probe with its execution pipeline built.
type probe struct {
	meta    observe.ProbeMeta
	breaker *breaker
	run     func(ctx context.Context) (any, error)
}

// Collector gathers Readings by running registered probes.
//
// Contract:
//   - Concurrency: Collect is safe for concurrent use; registration must
//     complete before the first Collect.
//   - Errors: probe failures are recorded in the Reading; Collect returns an
//     error only when no metric probe succeeded.
type Collector struct {
	cfg    Config
	cache  *cache.Manager
	mw     *observe.Middleware
	logger observe.Logger
	now    func() time.Time

	mu      sync.RWMutex
	metrics []*probe
	service *probe
	display *probe
	info    *probe
}

// New creates an empty Collector.
func New(cfg Config, opts ...Option) *Collector {
	cfg.Retry = cfg.Retry.withDefaults()
	c := &Collector{
		cfg:    cfg,
		mw:     observe.NewMiddleware(nil, nil, nil),
		logger: observe.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a metric probe. One probe may be registered per component.
func (c *Collector) Register(p MetricProbe) error {
	if p.Component == "" || p.Fn == nil {
		return fmt.Errorf("%w: component and function are required", ErrInvalidProbe)
	}
	if p.CacheType == "" {
		p.CacheType = cache.TypeHealthMetrics
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.metrics {
		if existing.meta.Component == p.Component {
			return fmt.Errorf("%w: %s", ErrDuplicateProbe, p.Component)
		}
	}

	fn := p.Fn
	meta := observe.ProbeMeta{Component: p.Component, Name: p.Name, CacheType: p.CacheType}
	c.metrics = append(c.metrics, c.build(meta, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}))
	return nil
}

// SetService installs the service probe.
func (c *Collector) SetService(name string, fn ServiceFunc) {
	meta := observe.ProbeMeta{Component: health.ComponentService, Name: name, CacheType: cache.TypeServiceStatus}
	p := c.build(meta, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	c.mu.Lock()
	c.service = p
	c.mu.Unlock()
}

// SetDisplay installs the display probe.
func (c *Collector) SetDisplay(name string, fn DisplayFunc) {
	meta := observe.ProbeMeta{Component: health.ComponentDisplay, Name: name, CacheType: cache.TypeServiceStatus}
	p := c.build(meta, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	c.mu.Lock()
	c.display = p
	c.mu.Unlock()
}

// SetInfo installs the system info probe. Its result is memoized under
// the system_info cache type.
func (c *Collector) SetInfo(name string, fn InfoFunc) {
	meta := observe.ProbeMeta{Component: InfoComponent, Name: name, CacheType: cache.TypeSystemInfo}
	p := c.build(meta, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	c.mu.Lock()
	c.info = p
	c.mu.Unlock()
}

// build wires fn through timeout, retry, breaker, instrumentation and cache,
// innermost first.
func (c *Collector) build(meta observe.ProbeMeta, fn observe.ProbeFunc) *probe {
	p := &probe{
		meta:    meta,
		breaker: newBreaker(c.cfg.BreakerFailures, c.cfg.BreakerCoolDown, c.now),
	}

	attempt := func(ctx context.Context) (any, error) {
		return withTimeout(ctx, c.cfg.ProbeTimeout, fn)
	}
	guarded := func(ctx context.Context) (any, error) {
		if err := p.breaker.allow(); err != nil {
			return nil, err
		}
		v, err := retry(ctx, c.cfg.Retry, attempt)
		p.breaker.record(err)
		return v, err
	}
	instrumented := c.mw.Wrap(meta, guarded)

	key := "probe:" + meta.ProbeID()
	memoized := cache.Memoize(c.cache, key, func(ctx context.Context, _ struct{}) (any, error) {
		return instrumented(ctx)
	}, cache.MemoizeOptions[struct{}]{
		KeyFunc:   func(struct{}) (string, error) { return key, nil },
		CacheType: meta.CacheType,
	})
	p.run = func(ctx context.Context) (any, error) {
		return memoized(ctx, struct{}{})
	}
	return p
}

// Collect runs every probe concurrently and assembles a Reading.
func (c *Collector) Collect(ctx context.Context) (health.Reading, error) {
	c.mu.RLock()
	metrics := append([]*probe(nil), c.metrics...)
	service, display, info := c.service, c.display, c.info
	c.mu.RUnlock()

	if len(metrics) == 0 && service == nil && display == nil && info == nil {
		return health.Reading{}, ErrNoProbes
	}

	type outcome struct {
		v   any
		err error
	}
	results := make([]outcome, len(metrics))
	var svc, disp, inf outcome

	var g errgroup.Group
	if c.cfg.Concurrency > 0 {
		g.SetLimit(c.cfg.Concurrency)
	}
	for i, p := range metrics {
		g.Go(func() error {
			v, err := p.run(ctx)
			results[i] = outcome{v, err}
			return nil
		})
	}
	if service != nil {
		g.Go(func() error {
			v, err := service.run(ctx)
			svc = outcome{v, err}
			return nil
		})
	}
	if display != nil {
		g.Go(func() error {
			v, err := display.run(ctx)
			disp = outcome{v, err}
			return nil
		})
	}
	if info != nil {
		g.Go(func() error {
			v, err := info.run(ctx)
			inf = outcome{v, err}
			return nil
		})
	}
	_ = g.Wait()

	reading := health.Reading{
		Metrics:     make(health.Snapshot, len(metrics)),
		CollectedAt: c.now(),
	}

	var errs []error
	for i, p := range metrics {
		r := results[i]
		section, ok := r.v.(map[string]any)
		if r.err == nil && !ok {
			r.err = fmt.Errorf("probe returned %T, want a snapshot section", r.v)
		}
		if r.err != nil {
			c.logger.WithProbe(p.meta).Warn(ctx, "metric probe failed", observe.F("error", r.err))
			errs = append(errs, fmt.Errorf("%s: %w", p.meta.Component, r.err))
			reading.Metrics[p.meta.Component] = health.ErrorSection(r.err)
			continue
		}
		reading.Metrics[p.meta.Component] = section
	}

	if service != nil {
		if sh, ok := svc.v.(health.ServiceHealth); svc.err == nil && ok {
			reading.Service = sh
		} else {
			c.logger.WithProbe(service.meta).Warn(ctx, "service probe failed", observe.F("error", errOr(svc.err, svc.v)))
		}
	}
	if display != nil {
		if d, ok := disp.v.(health.Display); disp.err == nil && ok {
			reading.Display = &d
		} else {
			c.logger.WithProbe(display.meta).Warn(ctx, "display probe failed", observe.F("error", errOr(disp.err, disp.v)))
		}
	}

	if info != nil {
		if si, ok := inf.v.(health.SystemInfo); inf.err == nil && ok {
			reading.Info = &si
		} else {
			c.logger.WithProbe(info.meta).Warn(ctx, "system info probe failed", observe.F("error", errOr(inf.err, inf.v)))
		}
	}

	if len(metrics) > 0 && len(errs) == len(metrics) {
		return reading, fmt.Errorf("%w: %w", ErrAllProbesFailed, errors.Join(errs...))
	}
	return reading, nil
}

// ProbeStates reports the circuit breaker state of every probe by probe ID.
func (c *Collector) ProbeStates() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	states := make(map[string]string, len(c.metrics)+3)
	for _, p := range c.metrics {
		states[p.meta.ProbeID()] = p.breaker.current().String()
	}
	for _, p := range []*probe{c.service, c.display, c.info} {
		if p != nil {
			states[p.meta.ProbeID()] = p.breaker.current().String()
		}
	}
	return states
}

func errOr(err error, v any) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected probe result %T", v)
}

var _ health.Source = (*Collector)(nil)
