package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mainsite/internal/auth"
)

const operatorIDKey = "operatorID"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware validates the operator access token and stores the operator
// ID on the context.
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil || claims.TokenType != "access" {
			abortUnauthorized(c)
			return
		}

		c.Set(operatorIDKey, claims.OperatorID)
		c.Next()
	}
}

// OperatorIDFromContext returns the authenticated operator ID.
func OperatorIDFromContext(c *gin.Context) (uint, bool) {
	if value, ok := c.Get(operatorIDKey); ok {
		if id, ok := value.(uint); ok {
			return id, true
		}
	}
	return 0, false
}
