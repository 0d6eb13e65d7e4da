// Package ratelimit implements per-identifier sliding-window limits backed by
// a shared counter store. The limiter holds no counts of its own.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/metrics"
)

// Hit is the store's answer for one attempt.
type Hit struct {
	Allowed bool
	Count   int
	Oldest  time.Time
}

// Store atomically trims, counts and records attempts for a key. An attempt
// is recorded only when it is allowed.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (Hit, error)
}

type Limiter struct {
	store    Store
	policies map[Class]Policy
	now      func() time.Time
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithPolicy(class Class, p Policy) Option {
	return func(l *Limiter) { l.policies[class] = p }
}

func WithTimeout(d time.Duration) Option {
	return func(l *Limiter) { l.timeout = d }
}

func NewLimiter(store Store, logger zerolog.Logger, m *metrics.Metrics, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: make(map[Class]Policy, len(DefaultPolicies)),
		now:      time.Now,
		timeout:  constants.RateLimitTimeout,
		logger:   logger,
		metrics:  m,
	}
	for class, p := range DefaultPolicies {
		l.policies[class] = p
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the policy for class, falling back to general API traffic.
func (l *Limiter) Policy(class Class) Policy {
	if p, ok := l.policies[class]; ok {
		return p
	}
	return l.policies[ClassAPI]
}

func (l *Limiter) Now() time.Time {
	return l.now()
}

// Check records one attempt for identifier under class. It never fails: a
// store error is resolved by the class's fail-open or fail-closed policy.
func (l *Limiter) Check(ctx context.Context, identifier string, class Class) Decision {
	policy := l.Policy(class)
	now := l.now()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	hit, err := l.store.Hit(ctx, Key(class, identifier), now, policy.Window, policy.Max)
	if err != nil {
		return l.degraded(class, identifier, policy, now, err)
	}

	d := Decision{
		Allowed: hit.Allowed,
		Limit:   policy.Max,
		ResetAt: hit.Oldest.Add(policy.Window),
	}
	if hit.Oldest.IsZero() {
		d.ResetAt = now.Add(policy.Window)
	}
	if hit.Allowed {
		d.Remaining = max(policy.Max-hit.Count, 0)
	}

	outcome := "allowed"
	if !d.Allowed {
		outcome = "rejected"
		l.logger.Info().
			Str("class", string(class)).
			Str("identifier", identifier).
			Int("limit", policy.Max).
			Time("reset_at", d.ResetAt).
			Msg("rate limit exceeded")
	}
	l.metrics.ObserveRateLimit(string(class), outcome)
	return d
}

func (l *Limiter) degraded(class Class, identifier string, policy Policy, now time.Time, err error) Decision {
	d := Decision{
		Allowed:  policy.FailOpen,
		Limit:    policy.Max,
		ResetAt:  now.Add(policy.Window),
		Degraded: true,
	}
	if policy.FailOpen {
		d.Remaining = policy.Max
	}

	l.logger.Warn().
		Err(err).
		Str("class", string(class)).
		Str("identifier", identifier).
		Bool("fail_open", policy.FailOpen).
		Msg("rate limit store unavailable")

	outcome := "degraded_deny"
	if d.Allowed {
		outcome = "degraded_allow"
	}
	l.metrics.ObserveRateLimit(string(class), outcome)
	return d
}

func Key(class Class, identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", class, identifier)
}
