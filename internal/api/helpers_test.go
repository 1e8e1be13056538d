package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mainsite/internal/database"
	"mainsite/internal/mailer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&database.License{},
		&database.Api{},
		&database.Website{},
		&database.Location{},
		&database.CompanyTrack{},
		&database.Resume{},
		&database.Contact{},
		&database.Blog{},
		&database.BlogImage{},
		&database.Operator{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDispatcher records alert calls and answers with a fixed outcome.
type fakeDispatcher struct {
	outcome    mailer.Outcome
	trackCalls []database.CompanyTrack
	contacts   []database.Contact
}

func (d *fakeDispatcher) CompanyTrackAlert(company database.CompanyTrack) mailer.Outcome {
	d.trackCalls = append(d.trackCalls, company)
	return d.outcome
}

func (d *fakeDispatcher) ContactAlert(contact database.Contact) mailer.Outcome {
	d.contacts = append(d.contacts, contact)
	return d.outcome
}

// fakeObjectStore satisfies both the streaming and the admin storage
// surfaces.
type fakeObjectStore struct {
	objects map[string]string
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string]string{}}
}

func (s *fakeObjectStore) GetObject(_ context.Context, objectKey string) (io.ReadCloser, error) {
	content, ok := s.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %q not found", objectKey)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (s *fakeObjectStore) UploadFile(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) error {
	b, _ := io.ReadAll(reader)
	s.objects[objectKey] = string(b)
	return nil
}

func (s *fakeObjectStore) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.objects, objectKey)
	return nil
}
