package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mainsite/internal/gate"
)

// RequireLicense guards an endpoint with the license gate. The credential is
// the `id` query parameter; capability names which grant the caller needs.
// Every deny is a bare 403 so nothing about the license state leaks.
func RequireLicense(g *gate.Gate, capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := g.Authorize(c.Request.Context(), c.Query("id"), capability); err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
