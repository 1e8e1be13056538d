package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"mainsite/internal/database"
	"mainsite/internal/mailer"
)

// objectReader is the storage surface needed to stream stored files.
type objectReader interface {
	GetObject(ctx context.Context, objectKey string) (io.ReadCloser, error)
}

// TrackHandler serves the job-application tracking endpoints.
type TrackHandler struct {
	db         *gorm.DB
	dispatcher mailer.Dispatcher
	storage    objectReader
}

// NewTrackHandler constructs a TrackHandler.
func NewTrackHandler(db *gorm.DB, dispatcher mailer.Dispatcher, storage objectReader) *TrackHandler {
	return &TrackHandler{db: db, dispatcher: dispatcher, storage: storage}
}

// Open marks a tracking record opened and returns its snapshot. Re-opening
// is harmless: the opened flag and first-open timestamp are written only on
// the false-to-true transition. The alert mail is best effort and never
// fails the request.
func (h *TrackHandler) Open(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		NotFound(c, "tracking record not found")
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFrom(c)

	var track database.CompanyTrack
	if err := h.db.WithContext(ctx).Where("tracker_id = ?", trackerID).First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "tracking record not found")
			return
		}
		logger.Error("lookup tracking record", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !track.Opened {
		now := time.Now()
		err := h.db.WithContext(ctx).Model(&track).
			UpdateColumns(map[string]interface{}{
				"opened":      true,
				"opened_date": now,
			}).Error
		if err != nil {
			logger.Error("mark tracking opened", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		track.Opened = true
		track.OpenedDate = &now
	}

	if outcome := h.dispatcher.CompanyTrackAlert(track); !outcome.Delivered() {
		logger.Warn("track alert not delivered",
			slog.String("company", track.CompanyName),
			slog.String("status", outcome.Status.String()),
			slog.Any("error", outcome.Err),
		)
	}

	c.JSON(http.StatusOK, track)
}

// Resume streams the resume file attached to a tracking record.
func (h *TrackHandler) Resume(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		NotFound(c, "tracking record not found")
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFrom(c)

	var track database.CompanyTrack
	if err := h.db.WithContext(ctx).Where("tracker_id = ?", trackerID).First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "tracking record not found")
			return
		}
		logger.Error("lookup tracking record", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if track.ResumeKey == "" {
		NotFound(c, "no resume attached")
		return
	}

	obj, err := h.storage.GetObject(ctx, track.ResumeKey)
	if err != nil {
		logger.Error("open resume object", slog.String("object_key", track.ResumeKey), slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	defer obj.Close()

	fileName := track.ResumeFileName
	if fileName == "" {
		fileName = "resume.pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", fileName))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		// client likely disconnected mid-stream; nothing left to send
		logger.Warn("stream resume interrupted", slog.Any("error", err))
	}
}
