// Package pacing spaces outbound requests to mimic human cadence and to
// honor upstream rate-limit signals.
package pacing

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMinDelay and DefaultMaxDelay bound the randomized pause
	// inserted before every outbound request.
	DefaultMinDelay = 2 * time.Second
	DefaultMaxDelay = 5 * time.Second
)

// Pacer computes randomized inter-request delays and rate-limit backoff
// windows. The zero value is not usable; construct with New.
type Pacer struct {
	min  time.Duration
	max  time.Duration
	rand func() float64
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithBounds overrides the delay interval.
func WithBounds(min, max time.Duration) Option {
	return func(p *Pacer) {
		p.min = min
		p.max = max
	}
}

// WithRand injects the uniform source, for tests.
func WithRand(fn func() float64) Option {
	return func(p *Pacer) {
		p.rand = fn
	}
}

// New creates a Pacer with the default 2-5s interval.
func New(opts ...Option) *Pacer {
	p := &Pacer{
		min:  DefaultMinDelay,
		max:  DefaultMaxDelay,
		rand: rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.max < p.min {
		p.max = p.min
	}
	return p
}

// Delay returns a duration drawn uniformly from [min, max).
func (p *Pacer) Delay() time.Duration {
	spread := p.max - p.min
	if spread <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.rand()*float64(spread))
}

// Backoff returns the externally signaled wait period unchanged. No jitter
// and no exponential growth: each rate-limit signal is handled independently,
// trusting the upstream-provided duration.
func (p *Pacer) Backoff(signaled time.Duration) time.Duration {
	if signaled < 0 {
		return 0
	}
	return signaled
}

// Wait sleeps for a fresh random delay, returning early on cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	return Sleep(ctx, p.Delay())
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
