package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mainsite/internal/database"
	"mainsite/internal/mailer"
)

// ContactHandler accepts contact-form submissions.
type ContactHandler struct {
	db         *gorm.DB
	dispatcher mailer.Dispatcher
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(db *gorm.DB, dispatcher mailer.Dispatcher) *ContactHandler {
	return &ContactHandler{db: db, dispatcher: dispatcher}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

// Submit stores the contact record and fires the alert mail. The record
// write is the operation; the mail is best effort and its failure only
// reaches the log.
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid contact payload")
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFrom(c)

	contact := database.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := h.db.WithContext(ctx).Create(&contact).Error; err != nil {
		logger.Error("create contact", slog.Any("error", err))
		Internal(c, "error")
		return
	}

	if outcome := h.dispatcher.ContactAlert(contact); !outcome.Delivered() {
		logger.Warn("contact alert not delivered",
			slog.String("from", contact.Email),
			slog.String("status", outcome.Status.String()),
			slog.Any("error", outcome.Err),
		)
	}

	c.String(http.StatusOK, "success")
}
