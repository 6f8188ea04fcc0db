package cache

import "time"

// Policy resolves the TTL applied to cached values.
type Policy struct {
	// DefaultTTL applies to cache types without their own entry.
	// Zero or negative means entries never expire.
	DefaultTTL time.Duration

	// MaxTTL caps every resolved TTL. Zero means no cap.
	MaxTTL time.Duration

	// TypeTTL overrides DefaultTTL per cache type.
	TypeTTL map[string]time.Duration
}

// DefaultPolicy returns the stock policy: 30s by default, 30s for health
// metrics, 60s for service status and 5m for static system info.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 30 * time.Second,
		TypeTTL: map[string]time.Duration{
			TypeHealthMetrics: 30 * time.Second,
			TypeServiceStatus: 60 * time.Second,
			TypeSystemInfo:    5 * time.Minute,
		},
	}
}

// TTLFor returns the configured TTL for cacheType, clamped to MaxTTL.
func (p Policy) TTLFor(cacheType string) time.Duration {
	ttl, ok := p.TypeTTL[cacheType]
	if !ok {
		ttl = p.DefaultTTL
	}
	return p.clamp(ttl)
}

// EffectiveTTL resolves the TTL for a set: a positive override is clamped,
// a negative override means never expire, and zero falls back to TTLFor.
func (p Policy) EffectiveTTL(override time.Duration, cacheType string) time.Duration {
	switch {
	case override < 0:
		return 0
	case override > 0:
		return p.clamp(override)
	default:
		return p.TTLFor(cacheType)
	}
}

func (p Policy) clamp(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}
