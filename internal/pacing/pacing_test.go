package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay_WithinBounds(t *testing.T) {
	p := New()
	for i := 0; i < 100; i++ {
		d := p.Delay()
		assert.GreaterOrEqual(t, d, DefaultMinDelay)
		assert.Less(t, d, DefaultMaxDelay)
	}
}

func TestDelay_UsesInjectedRand(t *testing.T) {
	p := New(
		WithBounds(2*time.Second, 5*time.Second),
		WithRand(func() float64 { return 0.5 }),
	)
	assert.Equal(t, 3500*time.Millisecond, p.Delay())

	p = New(WithRand(func() float64 { return 0 }))
	assert.Equal(t, DefaultMinDelay, p.Delay())
}

func TestBackoff_ReturnsSignaledExactly(t *testing.T) {
	p := New()
	assert.Equal(t, 7*time.Second, p.Backoff(7*time.Second))
	assert.Equal(t, 42*time.Second, p.Backoff(42*time.Second))
	assert.Equal(t, time.Duration(0), p.Backoff(-time.Second))
}

func TestBackoff_NoGrowthAcrossSignals(t *testing.T) {
	p := New()
	first := p.Backoff(10 * time.Second)
	second := p.Backoff(10 * time.Second)
	assert.Equal(t, first, second)
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep_ZeroDuration(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
}
