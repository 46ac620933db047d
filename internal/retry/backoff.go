package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// ExponentialBackoff grows the delay by a fixed multiplier per attempt,
// capped at a maximum and spread by a symmetric jitter.
type ExponentialBackoff struct {
	initial     time.Duration
	max         time.Duration
	multiplier  float64
	jitter      float64 // fraction of the delay, 0.1 means +/-10%
	random      func() float64
	maxAttempts int
}

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initial = d }
}

func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.max = d }
}

func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

// WithJitter sets the jitter fraction. Zero makes delays deterministic.
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = j }
}

// WithRandom replaces the [0,1) source used for jitter.
func WithRandom(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.random = f }
}

// NewExponentialBackoff defaults to 100ms initial delay, 30s cap,
// multiplier 2 and 10% jitter.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initial:     100 * time.Millisecond,
		max:         30 * time.Second,
		multiplier:  2,
		jitter:      0.1,
		random:      rand.Float64,
		maxAttempts: maxAttempts,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	d := float64(b.initial) * math.Pow(b.multiplier, float64(attempt))
	if d > float64(b.max) {
		d = float64(b.max)
	}
	if b.jitter > 0 {
		d *= 1 + b.jitter*(b.random()*2-1)
	}
	return time.Duration(d)
}

func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}
