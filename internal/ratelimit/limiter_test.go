package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tantalus-boxing/internal/metrics"
	"tantalus-boxing/internal/testutil"
)

func newRedisLimiter(t *testing.T, opts ...Option) (*Limiter, *miniredis.Miniredis, *testutil.Clock, *metrics.Metrics) {
	t.Helper()
	client, mr := testutil.NewRedis(t)
	clock := testutil.NewClock()
	m := metrics.New()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewLimiter(NewRedisStore(client), zerolog.Nop(), m, opts...), mr, clock, m
}

func TestEveryPolicyAllowsMaxThenRejects(t *testing.T) {
	for class, policy := range DefaultPolicies {
		t.Run(string(class), func(t *testing.T) {
			limiter, _, clock, _ := newRedisLimiter(t)

			for i := 0; i < policy.Max; i++ {
				d := limiter.Check(context.Background(), "user-1", class)
				require.True(t, d.Allowed, "request %d", i+1)
				assert.Equal(t, policy.Max, d.Limit)
				assert.Equal(t, policy.Max-i-1, d.Remaining)
				clock.Advance(policy.Window / time.Duration(policy.Max*2))
			}

			d := limiter.Check(context.Background(), "user-1", class)
			assert.False(t, d.Allowed)
			assert.Equal(t, 0, d.Remaining)
			assert.False(t, d.Degraded)
			assert.True(t, d.ResetAt.After(clock.Now()), "reset must be in the future")
		})
	}
}

func TestResetAtIsOldestPlusWindow(t *testing.T) {
	limiter, _, clock, _ := newRedisLimiter(t, WithPolicy(ClassTournament, Policy{Window: time.Minute, Max: 3}))
	start := clock.Now()

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Check(context.Background(), "f1", ClassTournament).Allowed)
		clock.Advance(10 * time.Second)
	}

	d := limiter.Check(context.Background(), "f1", ClassTournament)
	require.False(t, d.Allowed)
	assert.Equal(t, start.Add(time.Minute).UnixMilli(), d.ResetAt.UnixMilli())
	assert.Equal(t, 30*time.Second, d.RetryAfter(clock.Now()))
}

func TestWindowSlides(t *testing.T) {
	limiter, _, clock, _ := newRedisLimiter(t, WithPolicy(ClassUpload, Policy{Window: time.Minute, Max: 2}))
	ctx := context.Background()

	require.True(t, limiter.Check(ctx, "u", ClassUpload).Allowed)
	clock.Advance(40 * time.Second)
	require.True(t, limiter.Check(ctx, "u", ClassUpload).Allowed)
	require.False(t, limiter.Check(ctx, "u", ClassUpload).Allowed)

	// The first attempt leaves the window; the second still counts.
	clock.Advance(21 * time.Second)
	require.True(t, limiter.Check(ctx, "u", ClassUpload).Allowed)
	require.False(t, limiter.Check(ctx, "u", ClassUpload).Allowed)
}

func TestRejectedAttemptsAreNotRecorded(t *testing.T) {
	limiter, mr, _, _ := newRedisLimiter(t, WithPolicy(ClassAuth, Policy{Window: time.Minute, Max: 1}))
	ctx := context.Background()

	require.True(t, limiter.Check(ctx, "10.0.0.1", ClassAuth).Allowed)
	for i := 0; i < 5; i++ {
		require.False(t, limiter.Check(ctx, "10.0.0.1", ClassAuth).Allowed)
	}

	members, err := mr.ZMembers(Key(ClassAuth, "10.0.0.1"))
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestIdentifiersAndClassesAreIndependent(t *testing.T) {
	limiter, _, _, _ := newRedisLimiter(t, WithPolicy(ClassAdmin, Policy{Window: time.Minute, Max: 1}))
	ctx := context.Background()

	require.True(t, limiter.Check(ctx, "a", ClassAdmin).Allowed)
	assert.False(t, limiter.Check(ctx, "a", ClassAdmin).Allowed)
	assert.True(t, limiter.Check(ctx, "b", ClassAdmin).Allowed)
	assert.True(t, limiter.Check(ctx, "a", ClassAPI).Allowed)
}

func TestConcurrentCallersShareOneWindow(t *testing.T) {
	limiter, _, _, _ := newRedisLimiter(t, WithPolicy(ClassTournament, Policy{Window: time.Minute, Max: 5}))

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check(context.Background(), "same-user", ClassTournament).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
}

func TestStoreOutageFollowsClassPolicy(t *testing.T) {
	limiter, mr, clock, m := newRedisLimiter(t)
	mr.Close()
	ctx := context.Background()

	for _, class := range []Class{ClassAuth, ClassAdmin, ClassUpload, ClassTournament} {
		d := limiter.Check(ctx, "user-1", class)
		assert.False(t, d.Allowed, class)
		assert.True(t, d.Degraded, class)
		assert.Equal(t, clock.Now().Add(DefaultPolicies[class].Window), d.ResetAt, class)
	}

	d := limiter.Check(ctx, "user-1", ClassAPI)
	assert.True(t, d.Allowed)
	assert.True(t, d.Degraded)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.RateLimitCount("auth", "degraded_deny")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.RateLimitCount("api", "degraded_allow")))
}

type failingStore struct{ err error }

func (s failingStore) Hit(context.Context, string, time.Time, time.Duration, int) (Hit, error) {
	return Hit{}, s.err
}

func TestStoreTimeoutIsDegraded(t *testing.T) {
	limiter := NewLimiter(failingStore{err: context.DeadlineExceeded}, zerolog.Nop(), nil)

	assert.False(t, limiter.Check(context.Background(), "x", ClassAuth).Allowed)
	assert.True(t, limiter.Check(context.Background(), "x", ClassAPI).Allowed)
}

func TestUnknownClassUsesAPIPolicy(t *testing.T) {
	limiter := NewLimiter(failingStore{err: errors.New("down")}, zerolog.Nop(), nil)
	assert.Equal(t, DefaultPolicies[ClassAPI], limiter.Policy(Class("mystery")))
}

func TestRetryAfterHasOneSecondFloor(t *testing.T) {
	now := time.Now()
	assert.Equal(t, time.Second, Decision{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
	assert.Equal(t, 2*time.Second, Decision{ResetAt: now.Add(1100 * time.Millisecond)}.RetryAfter(now))
}

func TestMetricsCountDecisions(t *testing.T) {
	limiter, _, _, m := newRedisLimiter(t, WithPolicy(ClassUpload, Policy{Window: time.Minute, Max: 1}))
	ctx := context.Background()

	limiter.Check(ctx, "u", ClassUpload)
	limiter.Check(ctx, "u", ClassUpload)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.RateLimitCount("upload", "allowed")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.RateLimitCount("upload", "rejected")))
}
