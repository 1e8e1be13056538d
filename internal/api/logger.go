package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"mainsite/internal/api/middleware"
)

// LoggerFrom returns the request-scoped logger installed by the middleware.
func LoggerFrom(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContext(c)
}
