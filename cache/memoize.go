package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/devicestatus/observe"
)

// MemoizeOptions configures Memoize.
type MemoizeOptions[A any] struct {
	// KeyFunc derives the cache key from the argument.
	// If nil, DefaultKey(name, arg) is used.
	KeyFunc func(arg A) (string, error)

	// TTL overrides the cache type's TTL. Zero uses the type TTL,
	// NoExpiry stores without expiry.
	TTL time.Duration

	// CacheType selects the configured TTL. Defaults to TypeDefault.
	CacheType string
}

// Memoize wraps fn so that successful results are cached in m.
//
// On a hit fn is not called. On a miss fn runs and its result is stored only
// when it returns a nil error; errors propagate unchanged and leave no entry.
// Concurrent misses on the same key are not coalesced: each caller runs fn.
// When m is nil or disabled the wrapper is a passthrough.
func Memoize[A, R any](m *Manager, name string, fn func(context.Context, A) (R, error), opts MemoizeOptions[A]) func(context.Context, A) (R, error) {
	cacheType := opts.CacheType
	if cacheType == "" {
		cacheType = TypeDefault
	}
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = func(arg A) (string, error) { return DefaultKey(name, arg) }
	}

	return func(ctx context.Context, arg A) (R, error) {
		if m == nil || !m.Enabled() {
			return fn(ctx, arg)
		}

		key, err := keyFunc(arg)
		if err != nil {
			m.logger.Warn(ctx, "memoize key derivation failed",
				observe.F("func", name),
				observe.F("error", err),
			)
			return fn(ctx, arg)
		}

		if r, ok := GetAs[R](ctx, m, key); ok {
			return r, nil
		}

		start := m.now()
		result, err := fn(ctx, arg)
		elapsed := m.now().Sub(start)
		if err != nil {
			m.logger.Warn(ctx, "memoized call failed, result not cached",
				observe.F("func", name),
				observe.F("key", key),
				observe.F("error", err),
			)
			return result, err
		}

		m.logger.Debug(ctx, "memoized call completed",
			observe.F("func", name),
			observe.F("key", key),
			observe.F("duration_ms", float64(elapsed.Microseconds())/1000),
		)
		m.SetTyped(ctx, key, result, opts.TTL, cacheType)
		return result, nil
	}
}
