package api

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed templates/copy_page.html
var copyPageFS embed.FS

var copyPageTemplate = template.Must(template.ParseFS(copyPageFS, "templates/copy_page.html"))

// CopyPage renders the operator helper page that shows the tracking link for
// a freshly created record, ready to paste into a resume.
func CopyPage(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		NotFound(c, "tracking record not found")
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := copyPageTemplate.Execute(c.Writer, gin.H{"TrackerID": trackerID.String()}); err != nil {
		LoggerFrom(c).Error("render copy page", slog.Any("error", err))
	}
}
