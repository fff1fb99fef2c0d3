package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/backend/internal/auth"
	"github.com/classpulse/backend/pkg/response"
)

// ContextRole is the key for the caller's role in gin context.
const ContextRole = "role"

// TeacherJWT returns a middleware that validates the teacher bearer token.
func TeacherJWT(jwtService *auth.JWTService) gin.HandlerFunc {
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
		claims, err := jwtService.Validate(parts[1])
		if err != nil || claims.Role != auth.RoleTeacher {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
