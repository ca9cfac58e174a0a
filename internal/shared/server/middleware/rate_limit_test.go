package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/ratelimit"
)

func newLimitedRouter(cfg RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(cfg))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return router
}

func hit(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "1.2.3.4:5678"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitThrottlesWithRetryAfter(t *testing.T) {
	limiter := ratelimit.New(
		ratelimit.NewMemoryStore(nil),
		map[ratelimit.Class]ratelimit.Rule{
			ratelimit.ClassGlobal: {Max: 2, Window: time.Minute},
		},
		nil,
	)
	router := newLimitedRouter(RateLimitConfig{Limiter: limiter, Class: ratelimit.ClassGlobal})

	for i := 0; i < 2; i++ {
		if rec := hit(router, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := hit(router, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}

	var body struct {
		Reason            string `json:"reason"`
		RetryAfterSeconds int    `json:"retryAfterSeconds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Reason != "RATE_LIMITED" || body.RetryAfterSeconds < 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRateLimitRuleForVariesByPlan(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(nil), nil, nil)
	router := gin.New()
	router.Use(Auth("test"))
	router.Use(RateLimit(RateLimitConfig{
		Limiter: limiter,
		Class:   ratelimit.ClassAI,
		KeyFor:  UserKey,
		RuleFor: func(c *gin.Context) (ratelimit.Rule, bool) {
			rule := ratelimit.Rule{Max: 1, Window: time.Minute}
			if UserPlanFromContext(c) == "pro" {
				rule.Max = 10
			}
			return rule, true
		},
	}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// Free caller exhausts the single slot.
	if rec := hit(router, map[string]string{"X-User-Id": "free-user"}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := hit(router, map[string]string{"X-User-Id": "free-user"}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for free plan, got %d", rec.Code)
	}

	// Pro caller gets the larger window.
	for i := 0; i < 5; i++ {
		rec := hit(router, map[string]string{"X-User-Id": "pro-user", "X-User-Plan": "pro"})
		if rec.Code != http.StatusOK {
			t.Fatalf("pro request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	limiter := ratelimit.New(
		ratelimit.NewMemoryStore(nil),
		map[ratelimit.Class]ratelimit.Rule{
			ratelimit.ClassAI: {Max: 1, Window: time.Minute},
		},
		nil,
	)
	router := newLimitedRouter(RateLimitConfig{
		Limiter: limiter,
		Class:   ratelimit.ClassAI,
		KeyFor:  func(c *gin.Context) string { return c.GetHeader("X-User-Id") },
	})

	if rec := hit(router, map[string]string{"X-User-Id": "u1"}); rec.Code != http.StatusOK {
		t.Fatalf("u1 first request: got %d", rec.Code)
	}
	if rec := hit(router, map[string]string{"X-User-Id": "u1"}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("u1 second request: expected 429, got %d", rec.Code)
	}
	if rec := hit(router, map[string]string{"X-User-Id": "u2"}); rec.Code != http.StatusOK {
		t.Fatalf("u2 must have its own window, got %d", rec.Code)
	}
}

func TestRateLimitEmptyKeySkips(t *testing.T) {
	limiter := ratelimit.New(
		ratelimit.NewMemoryStore(nil),
		map[ratelimit.Class]ratelimit.Rule{
			ratelimit.ClassAI: {Max: 0, Window: time.Minute},
		},
		nil,
	)
	router := newLimitedRouter(RateLimitConfig{
		Limiter: limiter,
		Class:   ratelimit.ClassAI,
		KeyFor:  func(c *gin.Context) string { return "" },
	})

	if rec := hit(router, nil); rec.Code != http.StatusOK {
		t.Fatalf("empty key must skip the check, got %d", rec.Code)
	}
}

func TestRateLimitNilLimiterAllows(t *testing.T) {
	router := newLimitedRouter(RateLimitConfig{Class: ratelimit.ClassGlobal})
	if rec := hit(router, nil); rec.Code != http.StatusOK {
		t.Fatalf("nil limiter must admit, got %d", rec.Code)
	}
}
