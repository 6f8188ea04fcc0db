package collect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Backoff configures probe retries.
type Backoff struct {
	// Attempts is the total number of tries, including the first.
	// Default: 1 (no retry)
	Attempts int

	// Initial is the delay before the first retry.
	// Default: 100ms
	Initial time.Duration

	// Max caps the delay between retries.
	// Default: 2s
	Max time.Duration

	// Multiplier grows the delay after each retry.
	// Default: 2.0
	Multiplier float64

	// Jitter adds up to 25% random delay.
	Jitter bool
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}
	if b.Initial <= 0 {
		b.Initial = 100 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 2 * time.Second
	}
	if b.Multiplier <= 0 {
		b.Multiplier = 2.0
	}
	return b
}

// delay returns the wait before retry number attempt (1-based).
func (b Backoff) delay(attempt int) time.Duration {
	d := time.Duration(float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1)))
	if d > b.Max || d <= 0 {
		d = b.Max
	}
	if b.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// retry runs op until it succeeds, attempts run out, the error is not
// retryable or ctx is done.
func retry(ctx context.Context, b Backoff, op func(context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if errors.Is(err, ErrProbeSuspended) || attempt == b.Attempts {
			break
		}

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// withTimeout runs op under a deadline. Probes that ignore ctx are abandoned
// when the deadline passes and their result is discarded.
func withTimeout(ctx context.Context, d time.Duration, op func(context.Context) (any, error)) (any, error) {
	if d <= 0 {
		return safeCall(ctx, op)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := safeCall(ctx, op)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrProbeTimeout
		}
		return r.v, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrProbeTimeout
		}
		return nil, ctx.Err()
	}
}

func safeCall(ctx context.Context, op func(context.Context) (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return op(ctx)
}

// breakerState is the state of a probe's circuit breaker.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker suspends a probe after consecutive failed collections and lets a
// single trial through once the cool-down has passed.
type breaker struct {
	maxFailures int
	coolDown    time.Duration
	now         func() time.Time

	mu          sync.Mutex
	state       breakerState
	failures    int
	openedAt    time.Time
	trialActive bool
}

func newBreaker(maxFailures int, coolDown time.Duration, now func() time.Time) *breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if coolDown <= 0 {
		coolDown = 30 * time.Second
	}
	return &breaker{maxFailures: maxFailures, coolDown: coolDown, now: now}
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen && b.now().Sub(b.openedAt) >= b.coolDown {
		b.state = breakerHalfOpen
		b.trialActive = false
	}
	switch b.state {
	case breakerOpen:
		return ErrProbeSuspended
	case breakerHalfOpen:
		if b.trialActive {
			return ErrProbeSuspended
		}
		b.trialActive = true
	}
	return nil
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		if err == nil {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.maxFailures {
			b.state = breakerOpen
			b.openedAt = b.now()
		}
	case breakerHalfOpen:
		b.trialActive = false
		if err != nil {
			b.state = breakerOpen
			b.openedAt = b.now()
			return
		}
		b.state = breakerClosed
		b.failures = 0
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
