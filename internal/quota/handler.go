package quota

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/shared/server/middleware"
	"lexscan-backend/internal/shared/server/respond"
)

// Handler exposes the entitlement surface over HTTP.
type Handler struct {
	Svc *Service
	// DevRoutes enables the usage reset endpoint. Never on in production.
	DevRoutes bool
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, devRoutes bool) *Handler {
	return &Handler{Svc: svc, DevRoutes: devRoutes}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.get)
	rg.POST("/usage/plan", h.setPlan)
	if h.DevRoutes {
		rg.POST("/usage/reset", h.reset)
	}
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	q, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage", nil)
		return
	}
	respond.OK(c, gin.H{
		"plan":      q.Plan,
		"used":      q.Used,
		"cap":       q.Cap,
		"remaining": q.Remaining(),
	})
}

type setPlanRequest struct {
	Plan string `json:"plan"`
}

// setPlan is the billing collaborator hook. Upgrades take effect on the next
// submission; the usage counter is never decremented.
func (h *Handler) setPlan(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req setPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	if plan != PlanFree && plan != PlanPro {
		respond.Error(c, http.StatusBadRequest, "validation_error", "plan must be free or pro", nil)
		return
	}

	q, err := h.Svc.SetPlan(c.Request.Context(), userID, plan)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update plan", nil)
		return
	}
	respond.OK(c, gin.H{
		"plan":      q.Plan,
		"used":      q.Used,
		"cap":       q.Cap,
		"remaining": q.Remaining(),
	})
}

func (h *Handler) reset(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	q, err := h.Svc.Reset(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reset usage", nil)
		return
	}
	respond.OK(c, gin.H{
		"plan":      q.Plan,
		"used":      q.Used,
		"cap":       q.Cap,
		"remaining": q.Remaining(),
	})
}
