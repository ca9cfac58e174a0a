package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/ratelimit"
	"lexscan-backend/internal/shared/metrics"
)

// RateLimitConfig binds a limiter class to a key function for one route set.
type RateLimitConfig struct {
	Limiter *ratelimit.Limiter
	Class   ratelimit.Class
	// KeyFor derives the counter key. Empty results skip the check (for
	// example, the ai class before identity is known).
	KeyFor func(*gin.Context) string
	// RuleFor overrides the limiter's configured rule for this request.
	// Used by the ai class, whose capacity depends on the caller's plan.
	RuleFor func(*gin.Context) (ratelimit.Rule, bool)
}

// RateLimit enforces a fixed-window limit and answers 429 with Retry-After
// when the window is exhausted. No request state is admitted or charged for
// throttled requests.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFor == nil {
		cfg.KeyFor = ClientAddressKey
	}
	return func(c *gin.Context) {
		if cfg.Limiter == nil {
			c.Next()
			return
		}
		key := strings.TrimSpace(cfg.KeyFor(c))
		if key == "" {
			c.Next()
			return
		}

		var decision ratelimit.Decision
		if cfg.RuleFor != nil {
			if rule, ok := cfg.RuleFor(c); ok {
				decision = cfg.Limiter.CheckRule(c.Request.Context(), cfg.Class, key, rule)
			} else {
				decision = cfg.Limiter.Check(c.Request.Context(), cfg.Class, key)
			}
		} else {
			decision = cfg.Limiter.Check(c.Request.Context(), cfg.Class, key)
		}
		if decision.Allowed {
			c.Next()
			return
		}

		metrics.IncRateLimitThrottled()
		retryAfterSeconds := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"reason":            "RATE_LIMITED",
			"retryAfterSeconds": retryAfterSeconds,
		})
		c.Abort()
	}
}

// ClientAddressKey keys a limiter by the originating address.
func ClientAddressKey(c *gin.Context) string {
	return strings.TrimSpace(c.ClientIP())
}

// UserKey keys a limiter by the authenticated user, falling back to the
// originating address when identity is absent.
func UserKey(c *gin.Context) string {
	if id := strings.TrimSpace(UserIDFromContext(c)); id != "" {
		return id
	}
	return ClientAddressKey(c)
}
