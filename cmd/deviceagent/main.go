// Command deviceagent collects host metrics and service health, scores them
// and logs the verdict on a fixed interval.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/devicestatus/cache"
	"github.com/jonwraymond/devicestatus/collect"
	"github.com/jonwraymond/devicestatus/config"
	"github.com/jonwraymond/devicestatus/health"
	"github.com/jonwraymond/devicestatus/observe"
)

type agent struct {
	obs     observe.Observer
	logger  observe.Logger
	cache   *cache.Manager
	monitor *health.Monitor
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	once := flag.Bool("once", false, "print one JSON health report and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		log.Fatalf("config load error: %s", err)
	}

	a, err := newAgent(ctx, cfg)
	if err != nil {
		log.Fatalf("agent init error: %s", err)
	}
	defer a.shutdown()

	if *once {
		if err := a.printReport(ctx); err != nil {
			log.Fatalf("report error: %s", err)
		}
		return
	}
	a.run(ctx, cfg.Collect.Interval)
}

func newAgent(ctx context.Context, cfg *config.Config) (*agent, error) {
	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("middleware: %w", err)
	}

	manager, err := cache.NewManager(cfg.CacheManagerConfig(),
		cache.WithLogger(logger),
		cache.WithMeter(obs.Meter()),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	collector, err := collect.NewSystem(cfg.CollectorConfig(), cfg.SystemConfig(), collect.ExecRunner,
		collect.WithCache(manager),
		collect.WithMiddleware(mw),
		collect.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}

	scorer, err := cfg.Scorer()
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}

	monitor, err := health.NewMonitor(collector, scorer,
		health.WithLogger(logger),
		health.WithMeter(obs.Meter()),
	)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	logger.Info(ctx, "device agent initialized",
		observe.F("service", cfg.ServiceName),
		observe.F("version", cfg.Version),
		observe.F("caching", manager.Enabled()),
	)
	return &agent{obs: obs, logger: logger, cache: manager, monitor: monitor}, nil
}

func (a *agent) run(ctx context.Context, interval time.Duration) {
	warmed := a.cache.Warm(ctx, func(ctx context.Context) error {
		a.log(ctx, a.monitor.Check(ctx))
		return nil
	})
	a.logger.Debug(ctx, "initial check complete", observe.F("warmed", warmed))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info(ctx, "device agent stopping", observe.F("cache", a.cache.Stats()))
			return
		case <-ticker.C:
			a.log(ctx, a.monitor.Check(ctx))
		}
	}
}

func (a *agent) log(ctx context.Context, r health.Report) {
	fields := []observe.Field{
		observe.F("overall", r.Score.Overall),
		observe.F("status", r.Score.Status.String()),
		observe.F("stale", r.Stale),
	}
	switch {
	case r.Score.IsCritical():
		a.logger.Error(ctx, "device health critical", append(fields, observe.F("attention", r.Summary.NeedsAttention))...)
	case !r.Score.IsHealthy():
		a.logger.Warn(ctx, "device health degraded", append(fields, observe.F("warnings", r.Summary.Warnings))...)
	default:
		a.logger.Info(ctx, "device healthy", fields...)
	}
}

func (a *agent) printReport(ctx context.Context) error {
	out := struct {
		Report health.Report `json:"report"`
		Cache  cache.Stats   `json:"cache"`
	}{
		Report: a.monitor.Check(ctx),
		Cache:  a.cache.Stats(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (a *agent) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.obs.Shutdown(ctx); err != nil {
		log.Printf("observer shutdown error: %s", err)
	}
}
