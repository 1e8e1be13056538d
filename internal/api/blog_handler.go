package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mainsite/internal/database"
	"mainsite/internal/errcode"
)

// imageUploader is the image lifecycle surface the handler depends on.
type imageUploader interface {
	Upload(ctx context.Context, blogID uint, reader io.Reader, size int64, contentType string) (*database.BlogImage, error)
}

// BlogHandler serves public blog reads and inline image uploads.
type BlogHandler struct {
	db        *gorm.DB
	images    imageUploader
	redis     redis.UniversalClient
	maxBytes  int64
	maxPerDay int
	clamdAddr string
}

// NewBlogHandler constructs a BlogHandler.
func NewBlogHandler(db *gorm.DB, images imageUploader, redisClient redis.UniversalClient, maxBytes int64, maxPerDay int, clamdAddr string) *BlogHandler {
	return &BlogHandler{
		db:        db,
		images:    images,
		redis:     redisClient,
		maxBytes:  maxBytes,
		maxPerDay: maxPerDay,
		clamdAddr: clamdAddr,
	}
}

// Get returns one published blog post by slug.
func (h *BlogHandler) Get(c *gin.Context) {
	slug := c.Param("slug")

	var post database.Blog
	err := h.db.WithContext(c.Request.Context()).
		Where("slug = ? AND active = ? AND approved = ?", slug, true, true).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "blog not found")
			return
		}
		LoggerFrom(c).Error("lookup blog", slog.String("slug", slug), slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":      post.Title,
		"slug":       post.Slug,
		"content":    post.Content,
		"created_at": post.CreatedAt,
	})
}

// UploadImage accepts a multipart `upload` field, scans it when a clamd
// address is configured, stores it under the blog's folder and returns the
// public URL for the editor to embed.
func (h *BlogHandler) UploadImage(c *gin.Context) {
	blogID, err := strconv.ParseUint(c.Query("blog_id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid blog_id")
		return
	}

	file, err := c.FormFile("upload")
	if err != nil {
		BadRequest(c, "missing upload field")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		BadRequest(c, "file too large")
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFrom(c)

	if h.redis != nil && h.maxPerDay > 0 {
		rateKey := "rate:blog_upload:" + time.Now().UTC().Format("20060102")
		count, err := incrWithTTL(ctx, h.redis, rateKey, 24*time.Hour)
		if err != nil {
			// rate limiting is advisory; an unreachable redis does not block uploads
			logger.Warn("upload rate counter unavailable", slog.Any("error", err))
		} else if count > int64(h.maxPerDay) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "daily upload limit reached"})
			return
		}
	}

	if h.clamdAddr != "" {
		if err := h.scanUpload(file); err != nil {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open upload")
		return
	}
	defer reader.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	image, err := h.images.Upload(ctx, uint(blogID), reader, file.Size, contentType)
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			NotFound(c, "blog not found")
			return
		}
		logger.Error("upload blog image", slog.Uint64("blog_id", blogID), slog.Any("error", err))
		Internal(c, "failed to upload image")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": image.URL})
}

// scanUpload streams the file through clamd before it touches the store.
func (h *BlogHandler) scanUpload(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return err
	}

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	reader.Close()
	if err != nil {
		return err
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return errcode.ErrBadInput
		}
	}
	return nil
}
