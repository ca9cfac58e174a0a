package analysis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/quota"
	"lexscan-backend/internal/shared/server/middleware"
	"lexscan-backend/internal/shared/server/respond"
	"lexscan-backend/internal/shared/telemetry"
)

// Handler wires the submission endpoint to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: svc.MaxUploadBytes}
}

// RegisterRoutes attaches the submission route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/analyze", h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	plan := middleware.UserPlanFromContext(c)

	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if h.MaxUploadBytes > 0 && fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	doc, err := h.Svc.Submit(ctx, userID, plan, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			telemetry.Info("analysis.quota_denied", map[string]any{
				"request_id": c.GetString("requestId"),
				"user_id":    userID,
			})
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"reason": "QUOTA_EXCEEDED"})
		case errors.Is(err, ErrFileTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit analysis", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, gin.H{
		"documentId": doc.ID,
		"status":     doc.Status,
		"fileName":   doc.FileName,
		"createdAt":  doc.CreatedAt,
	})
}
