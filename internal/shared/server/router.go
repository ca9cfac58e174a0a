package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/analysis"
	"lexscan-backend/internal/documents"
	"lexscan-backend/internal/notify"
	"lexscan-backend/internal/quota"
	"lexscan-backend/internal/ratelimit"
	"lexscan-backend/internal/shared/config"
	"lexscan-backend/internal/shared/metrics"
	"lexscan-backend/internal/shared/server/middleware"
	"lexscan-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers and cross-cutting pieces the router wires.
type RouterDeps struct {
	Config          config.Config
	Limiter         *ratelimit.Limiter
	AnalysisHandler *analysis.Handler
	DocumentHandler *documents.Handler
	NotifyHandler   *notify.Handler
	UsageHandler    *quota.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.Limiter,
			Class:   ratelimit.ClassGlobal,
			KeyFor:  middleware.ClientAddressKey,
		}),
		middleware.Auth(cfg.Env),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.NotifyHandler != nil {
		deps.NotifyHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		// Submission carries its own per-user limit on top of the global one.
		// The window capacity follows the caller's plan.
		submitGroup := api.Group("")
		submitGroup.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.Limiter,
			Class:   ratelimit.ClassAI,
			KeyFor:  middleware.UserKey,
			RuleFor: func(c *gin.Context) (ratelimit.Rule, bool) {
				rule := ratelimit.Rule{Max: cfg.RateAIFreeMax, Window: cfg.RateAIWindow}
				if middleware.UserPlanFromContext(c) == quota.PlanPro {
					rule.Max = cfg.RateAIProMax
				}
				return rule, true
			},
		}))
		deps.AnalysisHandler.RegisterRoutes(submitGroup)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
