// Package retry re-runs an operation with exponential backoff and jitter.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

// Policy describes how often and how patiently an operation is retried.
//
// The delay before retry n (starting at 1) is BaseDelay*2^(n-1) when the previous
// error is transient, FixedDelay otherwise, plus a random jitter in [0, MaxJitter].
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	FixedDelay time.Duration
	MaxJitter  time.Duration
	// MaxDelay caps the exponential delay. Zero means DefaultMaxDelay.
	MaxDelay    time.Duration
	IsTransient func(error) bool

	// Sleep and Jitter default to a context aware timer and a uniform random jitter.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(maxJitter time.Duration) time.Duration
}

// DefaultMaxDelay caps the exponential delay of a Policy without MaxDelay.
const DefaultMaxDelay = time.Minute

// DefaultPolicy retries twice, starting at half a second.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		FixedDelay: 300 * time.Millisecond,
		MaxJitter:  250 * time.Millisecond,
	}
}

// Delay returns the wait before retry attempt (1-based) without jitter.
func (p Policy) Delay(attempt int, transient bool) time.Duration {
	if !transient {
		return p.FixedDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	d := p.BaseDelay
	if d <= 0 {
		return 0
	}
	for range attempt - 1 {
		if d > maxDelay/2 {
			return maxDelay
		}
		d <<= 1
	}

	return min(d, maxDelay)
}

// Do calls fn until it succeeds or MaxRetries retries have been spent, in which case
// the last error is returned unchanged. Cancelling ctx stops waiting and returns the
// context error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = randomJitter
	}

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= p.MaxRetries || ctx.Err() != nil {
			return zero, err
		}

		transient := p.IsTransient != nil && p.IsTransient(err)
		delay := p.Delay(attempt+1, transient) + jitter(p.MaxJitter)

		slogctx.Debug(ctx, "Retrying after failure",
			"attempt", attempt+1,
			"transient", transient,
			"delay", delay,
			"error", err,
		)

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter(maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 {
		return 0
	}

	//nolint:gosec
	return rand.N(maxJitter + 1)
}
