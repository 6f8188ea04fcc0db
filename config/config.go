package config

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jonwraymond/devicestatus/cache"
	"github.com/jonwraymond/devicestatus/collect"
	"github.com/jonwraymond/devicestatus/health"
	"github.com/jonwraymond/devicestatus/observe"
)

// EnvPrefix prefixes every environment override, e.g. DEVICE_CACHE_MAX_SIZE.
const EnvPrefix = "DEVICE"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")

	// ErrInvalidFile indicates the YAML file could not be read or decoded.
	ErrInvalidFile = errors.New("config: invalid config file")
)

// Config is the complete agent configuration.
type Config struct {
	ServiceName string        `yaml:"service_name" split_words:"true"`
	Version     string        `yaml:"version" split_words:"true"`
	Cache       CacheConfig   `yaml:"cache" split_words:"true"`
	Health      HealthConfig  `yaml:"health" split_words:"true"`
	Collect     CollectConfig `yaml:"collect" split_words:"true"`
	Observe     ObserveConfig `yaml:"observe" split_words:"true"`
}

// CacheConfig configures the cache manager. TTLs are in seconds.
type CacheConfig struct {
	Enabled    bool           `yaml:"enable_caching" split_words:"true"`
	DefaultTTL int            `yaml:"default_ttl" split_words:"true"`
	MaxTTL     int            `yaml:"max_ttl" split_words:"true"`
	MaxSize    int            `yaml:"max_cache_size" split_words:"true"`
	PerTypeTTL map[string]int `yaml:"per_type_ttl" split_words:"true"`
}

// HealthConfig holds the scoring tables. Entries given in YAML are merged
// over the defaults, so a partial weight table must still sum to 1.
type HealthConfig struct {
	Weights    health.Weights    `yaml:"weights" split_words:"true"`
	Thresholds health.Thresholds `yaml:"thresholds" ignored:"true"`
}

// CollectConfig configures collection and the host probes.
type CollectConfig struct {
	Interval      time.Duration `yaml:"interval" split_words:"true"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout" split_words:"true"`
	RetryAttempts int           `yaml:"retry_attempts" split_words:"true"`
	Concurrency   int           `yaml:"concurrency" split_words:"true"`
	Platform      string        `yaml:"platform" split_words:"true"`
	DiskPath      string        `yaml:"disk_path" split_words:"true"`
	CPUSample     time.Duration `yaml:"cpu_sample" split_words:"true"`
	ServiceUnit   string        `yaml:"service_unit" split_words:"true"`
	Headless      bool          `yaml:"headless" split_words:"true"`
	SysRoot       string        `yaml:"sys_root" split_words:"true"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	Tracing observe.TracingConfig `yaml:"tracing" split_words:"true"`
	Metrics observe.MetricsConfig `yaml:"metrics" split_words:"true"`
	Logging observe.LoggingConfig `yaml:"logging" split_words:"true"`
}

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		ServiceName: "deviceagent",
		Version:     "dev",
		Cache: CacheConfig{
			Enabled:    true,
			DefaultTTL: 30,
			MaxSize:    1000,
			PerTypeTTL: map[string]int{
				cache.TypeHealthMetrics: 30,
				cache.TypeServiceStatus: 60,
				cache.TypeSystemInfo:    300,
			},
		},
		Health: HealthConfig{
			Weights:    health.DefaultWeights(),
			Thresholds: health.DefaultThresholds(),
		},
		Collect: CollectConfig{
			Interval:      30 * time.Second,
			ProbeTimeout:  5 * time.Second,
			RetryAttempts: 2,
			DiskPath:      "/",
			CPUSample:     time.Second,
		},
		Observe: ObserveConfig{
			Tracing: observe.TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics: observe.MetricsConfig{Exporter: "none"},
			Logging: observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// ValidateWithContext validates every section.
func (c *Config) ValidateWithContext(ctx context.Context) error {
	return validation.ValidateStructWithContext(ctx, c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.Cache),
		validation.Field(&c.Health),
		validation.Field(&c.Collect),
		validation.Field(&c.Observe, validation.By(func(any) error {
			oc := c.ObserveConfig()
			return oc.Validate()
		})),
	)
}

// ValidateWithContext checks sizes and TTLs.
func (c CacheConfig) ValidateWithContext(ctx context.Context) error {
	return validation.ValidateStructWithContext(ctx, &c,
		validation.Field(&c.MaxSize, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultTTL, validation.Min(0)),
		validation.Field(&c.MaxTTL, validation.Min(0)),
		validation.Field(&c.PerTypeTTL, validation.Each(validation.Min(0))),
	)
}

// ValidateWithContext checks the weight and threshold tables.
func (c HealthConfig) ValidateWithContext(ctx context.Context) error {
	return validation.ValidateStructWithContext(ctx, &c,
		validation.Field(&c.Weights, validation.Required, validation.By(func(v any) error {
			w, _ := v.(health.Weights)
			return w.Validate()
		})),
		validation.Field(&c.Thresholds, validation.Required, validation.By(func(v any) error {
			t, _ := v.(health.Thresholds)
			return t.Validate()
		})),
	)
}

// ValidateWithContext checks intervals and the platform.
func (c CollectConfig) ValidateWithContext(ctx context.Context) error {
	return validation.ValidateStructWithContext(ctx, &c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ProbeTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RetryAttempts, validation.Min(0)),
		validation.Field(&c.Concurrency, validation.Min(0)),
		validation.Field(&c.Platform, validation.In(collect.PlatformLinux, collect.PlatformDarwin)),
		validation.Field(&c.CPUSample, validation.Min(time.Duration(0))),
	)
}

// CacheManagerConfig converts the cache section.
func (c *Config) CacheManagerConfig() cache.Config {
	policy := cache.Policy{
		DefaultTTL: seconds(c.Cache.DefaultTTL),
		MaxTTL:     seconds(c.Cache.MaxTTL),
		TypeTTL:    make(map[string]time.Duration, len(c.Cache.PerTypeTTL)),
	}
	for cacheType, ttl := range c.Cache.PerTypeTTL {
		policy.TypeTTL[cacheType] = seconds(ttl)
	}
	return cache.Config{
		Enabled: c.Cache.Enabled,
		MaxSize: c.Cache.MaxSize,
		Policy:  policy,
	}
}

// CollectorConfig converts the collect section.
func (c *Config) CollectorConfig() collect.Config {
	cfg := collect.DefaultConfig()
	cfg.ProbeTimeout = c.Collect.ProbeTimeout
	cfg.Retry.Attempts = c.Collect.RetryAttempts
	cfg.Concurrency = c.Collect.Concurrency
	return cfg
}

// SystemConfig selects the host probes.
func (c *Config) SystemConfig() collect.SystemConfig {
	return collect.SystemConfig{
		Platform:    c.Collect.Platform,
		DiskPath:    c.Collect.DiskPath,
		CPUSample:   c.Collect.CPUSample,
		ServiceUnit: c.Collect.ServiceUnit,
		Headless:    c.Collect.Headless,
		SysRoot:     c.Collect.SysRoot,
	}
}

// ObserveConfig converts the observe section.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Tracing:     c.Observe.Tracing,
		Metrics:     c.Observe.Metrics,
		Logging:     c.Observe.Logging,
	}
}

// Scorer builds a health scorer from the health section.
func (c *Config) Scorer() (*health.Scorer, error) {
	return health.NewScorer(c.Health.Weights, c.Health.Thresholds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
