package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"mainsite/internal/database"
)

// adminStore is the storage surface the operator endpoints need.
type adminStore interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, objectKey string) error
}

// adminImages is the image lifecycle surface the operator endpoints need.
type adminImages interface {
	CleanupUnreferenced(ctx context.Context, blog *database.Blog) error
	DeleteAll(ctx context.Context, blogID uint) error
}

// AdminHandler implements the operator API that replaces the original admin
// screens: licenses, websites, tracking records, resumes and blog posts.
type AdminHandler struct {
	db      *gorm.DB
	storage adminStore
	images  adminImages
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB, storage adminStore, images adminImages) *AdminHandler {
	return &AdminHandler{db: db, storage: storage, images: images}
}

type createLicenseRequest struct {
	Name string   `json:"name" binding:"required,max=100"`
	Apis []string `json:"apis"`
}

// CreateLicense creates a license granting the named capabilities.
// Capability rows are created on first use.
func (h *AdminHandler) CreateLicense(c *gin.Context) {
	var req createLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	apis := make([]database.Api, 0, len(req.Apis))
	for _, name := range req.Apis {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var api database.Api
		if err := h.db.WithContext(ctx).Where(database.Api{Name: name}).FirstOrCreate(&api).Error; err != nil {
			LoggerFrom(c).Error("resolve api", slog.String("name", name), slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		apis = append(apis, api)
	}

	license := database.License{Name: req.Name, Active: true, Apis: apis}
	if err := h.db.WithContext(ctx).Create(&license).Error; err != nil {
		LoggerFrom(c).Error("create license", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, license)
}

type updateLicenseRequest struct {
	Active *bool   `json:"active"`
	Name   *string `json:"name"`
}

// UpdateLicense activates/deactivates or renames a license.
func (h *AdminHandler) UpdateLicense(c *gin.Context) {
	key, err := uuid.Parse(c.Param("key"))
	if err != nil {
		NotFound(c, "license not found")
		return
	}

	var req updateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	var license database.License
	if err := h.db.WithContext(ctx).Where("key = ?", key).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "license not found")
			return
		}
		Internal(c, "internal error")
		return
	}

	updates := map[string]interface{}{}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&license).Updates(updates).Error; err != nil {
			Internal(c, "internal error")
			return
		}
	}

	c.JSON(http.StatusOK, license)
}

type createWebsiteRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	URL        string `json:"url" binding:"required,url"`
	LicenseKey string `json:"license_key"`
}

// CreateWebsite registers a tracked website, optionally bound to a license.
func (h *AdminHandler) CreateWebsite(c *gin.Context) {
	var req createWebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	website := database.Website{Name: req.Name, URL: req.URL}
	if req.LicenseKey != "" {
		key, err := uuid.Parse(req.LicenseKey)
		if err != nil {
			BadRequest(c, "invalid license_key")
			return
		}
		website.LicenseKey = &key
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&website).Error; err != nil {
		LoggerFrom(c).Error("create website", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, website)
}

type createTrackRequest struct {
	CompanyName string `json:"company_name" binding:"required,max=100"`
	Country     string `json:"country" binding:"required,max=50"`
	City        string `json:"city" binding:"required,max=100"`
	Position    string `json:"position" binding:"required,max=100"`
	URL         string `json:"url"`
	Note        string `json:"note"`
}

// CreateTrack creates a tracking record and returns it together with the
// helper page path where the mailable link can be copied from.
func (h *AdminHandler) CreateTrack(c *gin.Context) {
	var req createTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	track := database.CompanyTrack{
		CompanyName: req.CompanyName,
		Country:     req.Country,
		City:        req.City,
		Position:    req.Position,
		URL:         req.URL,
		Note:        req.Note,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&track).Error; err != nil {
		LoggerFrom(c).Error("create tracking record", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"track":     track,
		"copy_page": fmt.Sprintf("/copy_page/%s/", track.TrackerID),
	})
}

// DeleteTrack removes a tracking record. The record exclusively owns its
// resume file, so the stored object goes first; a record without one deletes
// cleanly.
func (h *AdminHandler) DeleteTrack(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		NotFound(c, "tracking record not found")
		return
	}

	ctx := c.Request.Context()

	var track database.CompanyTrack
	if err := h.db.WithContext(ctx).Where("tracker_id = ?", trackerID).First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "tracking record not found")
			return
		}
		Internal(c, "internal error")
		return
	}

	if track.ResumeKey != "" {
		if err := h.storage.DeleteObject(ctx, track.ResumeKey); err != nil {
			LoggerFrom(c).Error("delete track resume object", slog.Any("error", err))
			Internal(c, "failed to delete stored resume")
			return
		}
	}

	if err := h.db.WithContext(ctx).Delete(&track).Error; err != nil {
		Internal(c, "internal error")
		return
	}

	c.Status(http.StatusNoContent)
}

// AttachTrackResume uploads a per-company resume file onto a tracking record,
// replacing any previously stored object.
func (h *AdminHandler) AttachTrackResume(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		NotFound(c, "tracking record not found")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	ctx := c.Request.Context()

	var track database.CompanyTrack
	if err := h.db.WithContext(ctx).Where("tracker_id = ?", trackerID).First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "tracking record not found")
			return
		}
		Internal(c, "internal error")
		return
	}

	objectKey := fmt.Sprintf("resumes/tracks/%s/%s", track.TrackerID, randomizedFileName(file.Filename))
	if err := h.uploadFormFile(ctx, file, objectKey); err != nil {
		LoggerFrom(c).Error("upload track resume", slog.Any("error", err))
		Internal(c, "failed to store resume")
		return
	}

	previousKey := track.ResumeKey
	err = h.db.WithContext(ctx).Model(&track).
		UpdateColumns(map[string]interface{}{
			"resume_key":       objectKey,
			"resume_file_name": file.Filename,
		}).Error
	if err != nil {
		Internal(c, "internal error")
		return
	}

	if previousKey != "" {
		if err := h.storage.DeleteObject(ctx, previousKey); err != nil {
			LoggerFrom(c).Warn("delete replaced resume object", slog.Any("error", err))
		}
	}

	c.Status(http.StatusNoContent)
}

// CreateResume uploads a site resume. The stored name gets a random suffix
// so re-uploads never collide. Marking one primary clears the flag on the
// rest, keeping the anonymous resume endpoint deterministic.
func (h *AdminHandler) CreateResume(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	isPrimary := c.PostForm("is_primary") == "true"

	ctx := c.Request.Context()

	objectKey := "resumes/site/" + randomizedFileName(file.Filename)
	if err := h.uploadFormFile(ctx, file, objectKey); err != nil {
		LoggerFrom(c).Error("upload resume", slog.Any("error", err))
		Internal(c, "failed to store resume")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resume := database.Resume{
		ObjectKey:   objectKey,
		FileName:    file.Filename,
		ContentType: contentType,
		IsPrimary:   isPrimary,
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPrimary {
			if err := tx.Model(&database.Resume{}).Where("is_primary = ?", true).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&resume).Error
	})
	if err != nil {
		LoggerFrom(c).Error("create resume", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, resume)
}

// DeleteResume removes a resume row and its stored file.
func (h *AdminHandler) DeleteResume(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		NotFound(c, "resume not found")
		return
	}

	ctx := c.Request.Context()

	var resume database.Resume
	if err := h.db.WithContext(ctx).First(&resume, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "internal error")
		return
	}

	if err := h.storage.DeleteObject(ctx, resume.ObjectKey); err != nil {
		LoggerFrom(c).Error("delete resume object", slog.Any("error", err))
		Internal(c, "failed to delete stored resume")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&resume).Error; err != nil {
		Internal(c, "internal error")
		return
	}

	c.Status(http.StatusNoContent)
}

type createBlogRequest struct {
	Title string `json:"title" binding:"required,max=255"`
	Slug  string `json:"slug" binding:"required,max=255"`
}

// CreateBlog creates an empty draft post under a unique slug.
func (h *AdminHandler) CreateBlog(c *gin.Context) {
	var req createBlogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	var existing database.Blog
	if err := h.db.WithContext(ctx).Where("slug = ?", req.Slug).First(&existing).Error; err == nil {
		Conflict(c, "slug already taken")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		Internal(c, "internal error")
		return
	}

	post := database.Blog{Title: req.Title, Slug: req.Slug}
	if err := h.db.WithContext(ctx).Create(&post).Error; err != nil {
		// the pre-check races with concurrent creates; the unique index is
		// what actually decides
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "slug already taken")
			return
		}
		LoggerFrom(c).Error("create blog", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, post)
}

type updateBlogRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Active   *bool   `json:"active"`
	Approved *bool   `json:"approved"`
}

// UpdateBlog edits a post. Approval garbage-collects every uploaded image
// the final content no longer references.
func (h *AdminHandler) UpdateBlog(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		NotFound(c, "blog not found")
		return
	}

	var req updateBlogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	var post database.Blog
	if err := h.db.WithContext(ctx).First(&post, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "blog not found")
			return
		}
		Internal(c, "internal error")
		return
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.Active != nil {
		post.Active = *req.Active
	}
	if req.Approved != nil {
		post.Approved = *req.Approved
	}

	if err := h.db.WithContext(ctx).Save(&post).Error; err != nil {
		LoggerFrom(c).Error("update blog", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if post.Approved {
		if err := h.images.CleanupUnreferenced(ctx, &post); err != nil {
			LoggerFrom(c).Error("cleanup blog images", slog.Uint64("blog_id", id), slog.Any("error", err))
		}
	}

	c.JSON(http.StatusOK, post)
}

// DeleteBlog removes a post, its image rows and their hosted assets. The
// delete is unscoped: a soft-deleted row would keep the slug locked in the
// unique index forever.
func (h *AdminHandler) DeleteBlog(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		NotFound(c, "blog not found")
		return
	}

	ctx := c.Request.Context()

	var post database.Blog
	if err := h.db.WithContext(ctx).First(&post, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "blog not found")
			return
		}
		Internal(c, "internal error")
		return
	}

	if err := h.images.DeleteAll(ctx, post.ID); err != nil {
		LoggerFrom(c).Error("delete blog images", slog.Uint64("blog_id", id), slog.Any("error", err))
		Internal(c, "failed to delete blog assets")
		return
	}

	if err := h.db.WithContext(ctx).Unscoped().Delete(&post).Error; err != nil {
		Internal(c, "internal error")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) uploadFormFile(ctx context.Context, file *multipart.FileHeader, objectKey string) error {
	reader, err := file.Open()
	if err != nil {
		return err
	}
	defer reader.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.storage.UploadFile(ctx, objectKey, reader, file.Size, contentType)
}

// randomizedFileName appends a random suffix before the extension so repeat
// uploads of the same file never overwrite each other.
func randomizedFileName(fileName string) string {
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(path.Base(fileName), ext)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s%s", base, suffix, ext)
}
