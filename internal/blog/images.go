// Package blog manages the lifecycle of externally hosted blog images:
// upload on demand, garbage collection of unreferenced assets at approval
// time, and full cleanup when a post is deleted.
package blog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"gorm.io/gorm"

	"mainsite/internal/database"
	"mainsite/internal/errcode"
)

// ObjectStore is the slice of the storage client the image lifecycle needs.
type ObjectStore interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
	PublicURL(objectKey string) string
}

// ImageService owns BlogImage rows and their stored assets.
type ImageService struct {
	db     *gorm.DB
	store  ObjectStore
	logger *slog.Logger
}

// NewImageService constructs an ImageService.
func NewImageService(db *gorm.DB, store ObjectStore, logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{db: db, store: store, logger: logger}
}

// FolderKey is the per-blog object prefix all of its assets live under.
func FolderKey(blogID uint) string {
	return fmt.Sprintf("blogs/%d/", blogID)
}

// Upload stores an asset under the blog's folder, records the BlogImage row
// and returns it with the public URL filled in for embedding.
func (s *ImageService) Upload(ctx context.Context, blogID uint, reader io.Reader, size int64, contentType string) (*database.BlogImage, error) {
	var blog database.Blog
	if err := s.db.WithContext(ctx).First(&blog, blogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("blog %d: %w", blogID, errcode.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup blog %d: %w", blogID, err)
	}

	objectKey := FolderKey(blogID) + uuid.NewString() + extensionFor(contentType)
	if err := s.store.UploadFile(ctx, objectKey, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", errcode.ErrTransportFailure, err)
	}

	image := database.BlogImage{
		BlogID:    blogID,
		ObjectKey: objectKey,
		URL:       s.store.PublicURL(objectKey),
	}
	if err := s.db.WithContext(ctx).Create(&image).Error; err != nil {
		return nil, fmt.Errorf("record blog image: %w", err)
	}
	return &image, nil
}

// CleanupUnreferenced deletes every asset of the blog whose URL no longer
// appears in the post body. Runs at approval time, so images uploaded during
// editing but dropped from the final content do not leak.
func (s *ImageService) CleanupUnreferenced(ctx context.Context, blog *database.Blog) error {
	referenced := extractImageSources(blog.Content)

	var images []database.BlogImage
	if err := s.db.WithContext(ctx).Where("blog_id = ?", blog.ID).Find(&images).Error; err != nil {
		return fmt.Errorf("list blog images: %w", err)
	}

	var failed int
	for _, image := range images {
		if referenced[image.URL] {
			continue
		}
		if err := s.store.DeleteObject(ctx, image.ObjectKey); err != nil {
			s.logger.Error("delete unreferenced blog asset",
				slog.String("object_key", image.ObjectKey),
				slog.Any("error", err),
			)
			failed++
			continue
		}
		if err := s.db.WithContext(ctx).Delete(&database.BlogImage{}, image.ID).Error; err != nil {
			return fmt.Errorf("delete blog image row %d: %w", image.ID, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d assets not deleted", errcode.ErrTransportFailure, failed)
	}
	return nil
}

// DeleteAll removes every BlogImage row of the blog, the stored assets and
// the per-blog folder itself.
func (s *ImageService) DeleteAll(ctx context.Context, blogID uint) error {
	if err := s.db.WithContext(ctx).Where("blog_id = ?", blogID).Delete(&database.BlogImage{}).Error; err != nil {
		return fmt.Errorf("delete blog image rows: %w", err)
	}
	if err := s.store.DeletePrefix(ctx, FolderKey(blogID)); err != nil {
		return fmt.Errorf("%w: %v", errcode.ErrTransportFailure, err)
	}
	return nil
}

// extractImageSources returns the set of <img src> values in an HTML body.
// The tokenizer is forgiving about the malformed markup rich-text editors
// produce.
func extractImageSources(content string) map[string]bool {
	sources := make(map[string]bool)
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			return sources
		}
		if tokenType != html.StartTagToken && tokenType != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := tokenizer.TagName()
		if string(name) != "img" || !hasAttr {
			continue
		}
		for {
			key, value, more := tokenizer.TagAttr()
			if string(key) == "src" {
				sources[string(value)] = true
			}
			if !more {
				break
			}
		}
	}
}

func extensionFor(contentType string) string {
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		// prefer the shortest registered extension (".jpg" over ".jpeg")
		ext := exts[0]
		for _, candidate := range exts {
			if len(candidate) < len(ext) {
				ext = candidate
			}
		}
		return ext
	}
	return path.Ext(contentType)
}
