package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/devicestatus/cache"
	"github.com/jonwraymond/devicestatus/collect"
	"github.com/jonwraymond/devicestatus/health"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.ValidateWithContext(context.Background()))
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("DEVICE_TEST_LABEL", "com.example.tracker")
	path := writeFile(t, "agent.yaml", `
service_name: kiosk-17
version: 2.4.0
cache:
  enable_caching: true
  default_ttl: 15
  max_ttl: 120
  max_cache_size: 64
  per_type_ttl:
    system_info: 600
health:
  weights:
    cpu: 0.25
    memory: 0.25
    disk: 0.2
    service: 0.2
    network: 0.1
    display: 0.0
  thresholds:
    disk:
      warning: 70
      critical: 90
collect:
  interval: 1m
  probe_timeout: 2s
  platform: darwin
  service_unit: ${DEVICE_TEST_LABEL}
  headless: true
`)

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "kiosk-17", cfg.ServiceName)
	assert.Equal(t, "2.4.0", cfg.Version)
	assert.Equal(t, 64, cfg.Cache.MaxSize)
	assert.Equal(t, map[string]int{
		cache.TypeHealthMetrics: 30,
		cache.TypeServiceStatus: 60,
		cache.TypeSystemInfo:    600,
	}, cfg.Cache.PerTypeTTL, "per-type entries merge over defaults")
	assert.Equal(t, 0.25, cfg.Health.Weights[health.ComponentCPU])
	assert.Equal(t, health.Threshold{Warning: 70, Critical: 90}, cfg.Health.Thresholds[health.ComponentDisk])
	assert.Equal(t, health.Threshold{Warning: 80, Critical: 95}, cfg.Health.Thresholds[health.ComponentCPU])
	assert.Equal(t, time.Minute, cfg.Collect.Interval)
	assert.Equal(t, 2*time.Second, cfg.Collect.ProbeTimeout)
	assert.Equal(t, "com.example.tracker", cfg.Collect.ServiceUnit)
	assert.True(t, cfg.Collect.Headless)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "agent.yaml", "cache:\n  max_cache_size: 64\n")
	t.Setenv("DEVICE_CACHE_MAX_SIZE", "32")
	t.Setenv("DEVICE_CACHE_ENABLED", "false")
	t.Setenv("DEVICE_COLLECT_INTERVAL", "45s")
	t.Setenv("DEVICE_HEALTH_WEIGHTS", "cpu:0.5,memory:0.5")
	t.Setenv("DEVICE_OBSERVE_LOGGING_LEVEL", "debug")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Cache.MaxSize)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Collect.Interval)
	assert.Equal(t, health.Weights{health.ComponentCPU: 0.5, health.ComponentMemory: 0.5}, cfg.Health.Weights)
	assert.Equal(t, "debug", cfg.Observe.Logging.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, "agent.env", "DEVICE_VERSION=9.9.9\n")
	t.Cleanup(func() { _ = os.Unsetenv("DEVICE_VERSION") })

	cfg, err := Load(context.Background(), "", envFile)
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", cfg.Version)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{name: "missing variable", content: "service_name: ${DEVICE_TEST_UNSET_VAR}\n", target: ErrMissingEnv},
		{name: "unknown key", content: "cache:\n  max_entries: 10\n", target: ErrInvalidFile},
		{name: "malformed yaml", content: "cache: [\n", target: ErrInvalidFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeFile(t, "agent.yaml", tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, ErrInvalidFile)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("missing env file", func(t *testing.T) {
		_, err := Load(context.Background(), "", filepath.Join(t.TempDir(), "absent.env"))
		assert.Error(t, err)
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		cfg, err := Load(context.Background(), writeFile(t, "agent.yaml", ""))
		require.NoError(t, err)
		assert.Equal(t, Defaults(), *cfg)
	})
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }},
		{"zero cache size", func(c *Config) { c.Cache.MaxSize = 0 }},
		{"negative cache size", func(c *Config) { c.Cache.MaxSize = -5 }},
		{"negative default ttl", func(c *Config) { c.Cache.DefaultTTL = -1 }},
		{"negative type ttl", func(c *Config) { c.Cache.PerTypeTTL[cache.TypeSystemInfo] = -1 }},
		{"weights off by more than tolerance", func(c *Config) { c.Health.Weights[health.ComponentCPU] = 0.25 }},
		{"unknown weight component", func(c *Config) { c.Health.Weights["gpu"] = 0 }},
		{"empty weights", func(c *Config) { c.Health.Weights = nil }},
		{"inverted threshold", func(c *Config) {
			c.Health.Thresholds[health.ComponentCPU] = health.Threshold{Warning: 95, Critical: 80}
		}},
		{"short interval", func(c *Config) { c.Collect.Interval = 10 * time.Millisecond }},
		{"zero interval", func(c *Config) { c.Collect.Interval = 0 }},
		{"negative probe timeout", func(c *Config) { c.Collect.ProbeTimeout = -time.Second }},
		{"unsupported platform", func(c *Config) { c.Collect.Platform = "windows" }},
		{"unknown log level", func(c *Config) { c.Observe.Logging.Level = "loud" }},
		{"unknown metrics exporter", func(c *Config) {
			c.Observe.Metrics.Enabled = true
			c.Observe.Metrics.Exporter = "graphite"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.ValidateWithContext(context.Background()))
		})
	}
}

func TestValidate_WeightTolerance(t *testing.T) {
	cfg := Defaults()
	cfg.Health.Weights[health.ComponentCPU] = 0.2005
	assert.NoError(t, cfg.ValidateWithContext(context.Background()))
}

func TestCacheManagerConfig(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, cache.DefaultConfig(), cfg.CacheManagerConfig())

	cfg.Cache.MaxTTL = 45
	cfg.Cache.Enabled = false
	mc := cfg.CacheManagerConfig()
	assert.False(t, mc.Enabled)
	assert.Equal(t, 45*time.Second, mc.Policy.MaxTTL)
	assert.Equal(t, 45*time.Second, mc.Policy.TTLFor(cache.TypeSystemInfo))

	m, err := cache.NewManager(mc)
	require.NoError(t, err)
	assert.False(t, m.Enabled())
}

func TestCollectorAndSystemConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Collect.ProbeTimeout = 3 * time.Second
	cfg.Collect.RetryAttempts = 4
	cfg.Collect.Concurrency = 2
	cfg.Collect.Platform = collect.PlatformLinux
	cfg.Collect.ServiceUnit = "player.service"
	cfg.Collect.SysRoot = "/host/sys"

	cc := cfg.CollectorConfig()
	assert.Equal(t, 3*time.Second, cc.ProbeTimeout)
	assert.Equal(t, 4, cc.Retry.Attempts)
	assert.Equal(t, 2, cc.Concurrency)
	assert.Equal(t, collect.DefaultConfig().BreakerFailures, cc.BreakerFailures)

	assert.Equal(t, collect.SystemConfig{
		Platform:    collect.PlatformLinux,
		DiskPath:    "/",
		CPUSample:   time.Second,
		ServiceUnit: "player.service",
		SysRoot:     "/host/sys",
	}, cfg.SystemConfig())
}

func TestObserveConfig(t *testing.T) {
	cfg := Defaults()
	cfg.ServiceName = "kiosk"
	cfg.Version = "1.0.0"

	oc := cfg.ObserveConfig()
	assert.Equal(t, "kiosk", oc.ServiceName)
	assert.Equal(t, "1.0.0", oc.Version)
	assert.Equal(t, "info", oc.Logging.Level)
	require.NoError(t, oc.Validate())
}

func TestScorer(t *testing.T) {
	cfg := Defaults()
	scorer, err := cfg.Scorer()
	require.NoError(t, err)

	score := scorer.Score(health.Reading{Metrics: health.Snapshot{
		health.ComponentCPU: health.ResourceSection(90),
	}})
	assert.Equal(t, health.StatusWarning, score.Status)
}
