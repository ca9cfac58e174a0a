package notify

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/shared/server/middleware"
	"lexscan-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches notification routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.POST("/notifications/:id/read", h.markRead)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), userID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list notifications", nil)
		return
	}
	if items == nil {
		items = []Notification{}
	}
	respond.OK(c, items)
}

func (h *Handler) markRead(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	notificationID := c.Param("id")

	if err := h.Svc.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to mark notification read", nil)
		return
	}
	respond.OK(c, gin.H{"ok": true})
}
