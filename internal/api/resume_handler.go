package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mainsite/internal/database"
)

// ResumeHandler streams the site's primary resume.
type ResumeHandler struct {
	db      *gorm.DB
	storage objectReader
}

// NewResumeHandler constructs a ResumeHandler.
func NewResumeHandler(db *gorm.DB, storage objectReader) *ResumeHandler {
	return &ResumeHandler{db: db, storage: storage}
}

// Serve streams the primary resume to anonymous callers. The is_primary flag
// wins; among equal flags the oldest row does, so the selection is
// deterministic no matter how many resumes are stored.
func (h *ResumeHandler) Serve(c *gin.Context) {
	ctx := c.Request.Context()
	logger := LoggerFrom(c)

	var resume database.Resume
	err := h.db.WithContext(ctx).Order("is_primary DESC, id ASC").First(&resume).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.String(http.StatusOK, "No resume found")
			return
		}
		logger.Error("lookup resume", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	obj, err := h.storage.GetObject(ctx, resume.ObjectKey)
	if err != nil {
		logger.Error("open resume object", slog.String("object_key", resume.ObjectKey), slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	defer obj.Close()

	contentType := resume.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", resume.FileName))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		logger.Warn("stream resume interrupted", slog.Any("error", err))
	}
}
