package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-telephony/backend/internal/auth"
	"github.com/aura-telephony/backend/pkg/response"
)

// ContextService is the key for the calling service name in gin context.
const ContextService = "service"

// JWT returns a middleware that validates the service bearer token and
// sets the calling service name in context.
func JWT(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := tokens.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextService, claims.Service)
		c.Next()
	}
}
