// Package resilience holds the retry policy and circuit breakers used around
// every outbound provider and LLM call.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy controls how many times an operation is attempted and how long to
// wait in between. A Multiplier of 1 gives a fixed delay.
type Policy struct {
	// Attempts is the total number of tries including the first one.
	Attempts int
	// Delay is the wait before the first retry.
	Delay time.Duration
	// Multiplier scales Delay after each retry.
	Multiplier float64
	// MaxDelay caps the wait. Zero means no cap.
	MaxDelay time.Duration
	// Retryable overrides IsRetryable when set.
	Retryable func(error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error)
}

// FixedPolicy retries up to retries extra times with a constant delay.
func FixedPolicy(retries int, delay time.Duration) Policy {
	return Policy{Attempts: retries + 1, Delay: delay, Multiplier: 1}
}

// DefaultPolicy is used by the HTTP clients: three attempts, 500ms doubling.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 500 * time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Second}
}

// FromSettings builds a policy from flat config values, falling back to the
// defaults for zero fields.
func FromSettings(attempts, delayMs int, multiplier float64) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if delayMs > 0 {
		p.Delay = time.Duration(delayMs) * time.Millisecond
	}
	if multiplier > 0 {
		p.Multiplier = multiplier
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. The last error is returned; on ctx cancellation
// during a wait the context error is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var zero T
	delay := p.Delay
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || attempt >= p.Attempts || !retryable(err) {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// LogRetry returns an OnRetry hook that logs at WARN.
func LogRetry(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying request",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
