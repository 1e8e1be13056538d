package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mainsite/internal/database"
	"mainsite/internal/errcode"
)

type fakeUploader struct {
	calls int
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, blogID uint, reader io.Reader, size int64, contentType string) (*database.BlogImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &database.BlogImage{BlogID: blogID, ObjectKey: "blogs/1/x.png", URL: "https://img.example.invalid/blogs/1/x.png"}, nil
}

func newBlogRouter(db *gorm.DB, uploader *fakeUploader, maxBytes int64) *gin.Engine {
	handler := NewBlogHandler(db, uploader, nil, maxBytes, 0, "")
	router := gin.New()
	router.GET("/blog/:slug/", handler.Get)
	router.POST("/upload_image/", handler.UploadImage)
	return router
}

func TestGet_PublishedPost(t *testing.T) {
	db := newTestDB(t)
	router := newBlogRouter(db, &fakeUploader{}, 0)

	post := database.Blog{Title: "Hello", Slug: "hello", Content: "<p>hi</p>", Active: true, Approved: true}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("seed blog: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blog/hello/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["title"] != "Hello" || payload["content"] != "<p>hi</p>" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestGet_UnapprovedPostHidden(t *testing.T) {
	db := newTestDB(t)
	router := newBlogRouter(db, &fakeUploader{}, 0)

	post := database.Blog{Title: "Draft", Slug: "draft", Active: true, Approved: false}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("seed blog: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blog/draft/", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unapproved post, got %d", w.Code)
	}
}

func TestUploadImage_ReturnsURL(t *testing.T) {
	db := newTestDB(t)
	uploader := &fakeUploader{}
	router := newBlogRouter(db, uploader, 0)

	body, contentType := multipartFile(t, "upload", "pic.png", "\x89PNG")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload_image/?blog_id=1", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["url"] == "" {
		t.Fatalf("expected url in response, got %v", payload)
	}
	if uploader.calls != 1 {
		t.Fatalf("expected 1 upload, got %d", uploader.calls)
	}
}

func TestUploadImage_MissingFieldRejected(t *testing.T) {
	db := newTestDB(t)
	uploader := &fakeUploader{}
	router := newBlogRouter(db, uploader, 0)

	body, contentType := multipartFile(t, "wrong_field", "pic.png", "x")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload_image/?blog_id=1", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if uploader.calls != 0 {
		t.Fatalf("expected no uploads, got %d", uploader.calls)
	}
}

func TestUploadImage_SizeCapEnforced(t *testing.T) {
	db := newTestDB(t)
	uploader := &fakeUploader{}
	router := newBlogRouter(db, uploader, 4)

	body, contentType := multipartFile(t, "upload", "pic.png", "way past the cap")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload_image/?blog_id=1", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestUploadImage_UnknownBlogNotFound(t *testing.T) {
	db := newTestDB(t)
	uploader := &fakeUploader{err: errcode.ErrNotFound}
	router := newBlogRouter(db, uploader, 0)

	body, contentType := multipartFile(t, "upload", "pic.png", "x")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload_image/?blog_id=99", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}
