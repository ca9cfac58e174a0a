package ratelimit

import (
	"context"
	"sync"
	"time"

	"lexscan-backend/internal/shared/telemetry"
)

// Class identifies an independently configured limiter.
type Class string

const (
	// ClassGlobal throttles all traffic per originating address.
	ClassGlobal Class = "global"
	// ClassAuth throttles credential-verification attempts per address.
	ClassAuth Class = "auth"
	// ClassAI throttles analysis submissions per authenticated user.
	ClassAI Class = "ai"
)

// Rule configures one fixed window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// CounterStore atomically increments a keyed counter within a fixed window.
// Implementations must be safe across processes: the returned count reflects
// the increment (no read-then-write race), and an expired window restarts at 1.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, windowStart time.Time, err error)
}

// Limiter is a tiered fixed-window request throttle over a shared counter store.
type Limiter struct {
	store    CounterStore
	rules    map[Class]Rule
	now      func() time.Time
	warnOnce sync.Once
}

// New constructs a Limiter. A nil now func defaults to time.Now.
func New(store CounterStore, rules map[Class]Rule, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, rules: rules, now: now}
}

// Check records one request against the class window for key and reports
// whether it is admitted. An unknown class or a non-positive rule admits
// everything. If the counter backend is unreachable the limiter fails open:
// availability is preferred over strict throttling, with a single warning
// logged per process.
func (l *Limiter) Check(ctx context.Context, class Class, key string) Decision {
	if l == nil {
		return Decision{Allowed: true}
	}
	rule, ok := l.rules[class]
	if !ok {
		return Decision{Allowed: true}
	}
	return l.CheckRule(ctx, class, key, rule)
}

// CheckRule is Check with an explicit rule, for classes whose capacity
// depends on the caller (the ai class varies by plan).
func (l *Limiter) CheckRule(ctx context.Context, class Class, key string, rule Rule) Decision {
	if l == nil {
		return Decision{Allowed: true}
	}
	if rule.Max <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}
	}

	count, windowStart, err := l.store.Incr(ctx, string(class)+"|"+key, rule.Window)
	if err != nil {
		l.warnOnce.Do(func() {
			telemetry.Warn("ratelimit.store_unreachable", map[string]any{
				"class": string(class),
				"error": err.Error(),
			})
		})
		return Decision{Allowed: true}
	}

	if count <= int64(rule.Max) {
		return Decision{Allowed: true, Count: count}
	}

	retryAfter := windowStart.Add(rule.Window).Sub(l.now())
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Decision{Allowed: false, Count: count, RetryAfter: retryAfter}
}
