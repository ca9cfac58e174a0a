package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	userPlanKey = "userPlan"
)

// Auth resolves the caller identity established by the upstream auth layer.
// Session and token verification live outside this service; the gateway
// forwards the resolved identity in X-User-Id and the plan in X-User-Plan.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if path == "/api/v1/health" || path == "/metrics" {
			c.Next()
			return
		}

		userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, userID)
		if plan := strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Plan"))); plan != "" {
			c.Set(userPlanKey, plan)
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserPlanFromContext fetches the plan hint set by the auth middleware.
func UserPlanFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userPlanKey)
	if plan, ok := val.(string); ok {
		return plan
	}
	return ""
}
