package resilience_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mercadito/internal/resilience"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	metrics := resilience.NewBreakerMetrics("test", prometheus.NewRegistry())
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:       "offer_cache",
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenFor:      time.Second,
		Metrics:      metrics,
		Now:          clk.Now,
	})
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.State.WithLabelValues("offer_cache")))

	clk.Advance(time.Second)
	require.True(t, breaker.Allow(ctx))
	require.Equal(t, resilience.HalfOpen, breaker.State())
	require.False(t, breaker.Allow(ctx), "only one trial call while half-open")

	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.State.WithLabelValues("offer_cache")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Opened.WithLabelValues("offer_cache")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("offer_cache", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("offer_cache", "half_open", "closed")))
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: time.Second, Now: clk.Now})
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	clk.Advance(2 * time.Second)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

func TestBreakerDo(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: time.Hour})
	ctx := context.Background()
	boom := errors.New("boom")

	require.ErrorIs(t, breaker.Do(ctx, func(context.Context) error { return boom }), boom)
	calls := 0
	err := breaker.Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Zero(t, calls)
}

func TestNilBreakerAllowsEverything(t *testing.T) {
	var breaker *resilience.Breaker
	require.True(t, breaker.Allow(context.Background()))
	breaker.Report(context.Background(), false)
}

func TestBreakerMetricsRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := resilience.NewBreakerMetrics("dup", reg)
	second := resilience.NewBreakerMetrics("dup", reg)
	require.Same(t, first.State, second.State)
}
