package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"mainsite/internal/database"
)

// visitRecorder is the aggregator surface the handler depends on.
type visitRecorder interface {
	RecordVisit(ctx context.Context, website *database.Website, callerIP string) error
}

// VisitHandler serves the license-gated visit endpoint.
type VisitHandler struct {
	db       *gorm.DB
	recorder visitRecorder
}

// NewVisitHandler constructs a VisitHandler.
func NewVisitHandler(db *gorm.DB, recorder visitRecorder) *VisitHandler {
	return &VisitHandler{db: db, recorder: recorder}
}

// RecordVisit resolves the website owned by the license in `id` and records
// one visit from the caller's IP. The license gate middleware has already
// authorized the request by the time this runs.
func (h *VisitHandler) RecordVisit(c *gin.Context) {
	licenseKey, err := uuid.Parse(c.Query("id"))
	if err != nil {
		NotFound(c, "website not found")
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFrom(c)

	var website database.Website
	if err := h.db.WithContext(ctx).Where("license_key = ?", licenseKey).First(&website).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "website not found")
			return
		}
		logger.Error("lookup website", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.recorder.RecordVisit(ctx, &website, c.ClientIP()); err != nil {
		logger.Error("record visit", slog.Uint64("website_id", uint64(website.ID)), slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "success"})
}
