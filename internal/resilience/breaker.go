package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned without calling the operation while a breaker
// is open.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// BreakerState is the externally visible state of a Breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// Breaker stops calling a failing service for a cool-down period once
// Threshold consecutive calls have failed. After the cool-down one trial call is
// let through; its outcome either closes or re-opens the breaker.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu        sync.Mutex
	failures  int
	openUntil time.Time
	probing   bool
	now       func() time.Time
}

// NewBreaker creates a breaker. Non-positive values default to 5 failures
// and a 30s cool-down.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// State reports the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() BreakerState {
	switch {
	case b.openUntil.IsZero():
		return BreakerClosed
	case b.now().Before(b.openUntil):
		return BreakerOpen
	default:
		return BreakerHalfOpen
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerOpen:
		return ErrBreakerOpen
	case BreakerHalfOpen:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.probing
	b.probing = false

	if err == nil {
		if !b.openUntil.IsZero() {
			zap.L().Info("circuit breaker closed", zap.String("service", b.name))
		}
		b.failures = 0
		b.openUntil = time.Time{}
		return
	}

	b.failures++
	if wasProbe || b.failures >= b.threshold {
		b.openUntil = b.now().Add(b.cooldown)
		zap.L().Warn("circuit breaker opened",
			zap.String("service", b.name),
			zap.Int("consecutive_failures", b.failures),
			zap.Time("open_until", b.openUntil),
		)
	}
}

// Call runs fn through the breaker. Context cancellation is not counted as
// a service failure.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, eris.Wrapf(err, "%s", b.name)
	}
	val, err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		b.mu.Lock()
		b.probing = false
		b.mu.Unlock()
		return zero, err
	}
	b.record(err)
	return val, err
}

// Breakers lazily creates one Breaker per service name.
type Breakers struct {
	threshold int
	cooldown  time.Duration

	mu  sync.Mutex
	set map[string]*Breaker
}

// NewBreakers creates a registry whose breakers share the given settings.
func NewBreakers(threshold int, cooldown time.Duration) *Breakers {
	return &Breakers{threshold: threshold, cooldown: cooldown, set: make(map[string]*Breaker)}
}

// For returns the breaker for service, creating it on first use.
func (r *Breakers) For(service string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.set[service]; ok {
		return b
	}
	b := NewBreaker(service, r.threshold, r.cooldown)
	r.set[service] = b
	return b
}

// States snapshots every known breaker.
func (r *Breakers) States() map[string]BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]BreakerState, len(r.set))
	for name, b := range r.set {
		out[name] = b.State()
	}
	return out
}
