package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/backend/pkg/response"
)

// HeaderStudentSession carries the opaque student session token. It is an
// identity hint, not an authorization token: the server always resolves it
// against the presence registry.
const HeaderStudentSession = "X-Student-Session-Id"

// BlockChecker answers whether a session was removed by the teacher.
type BlockChecker interface {
	IsBlocked(ctx context.Context, sessionID string) (bool, error)
}

// ValidateStudent requires the session header and rejects blocked sessions
// with a distinct 403 so clients can route to their "removed" state.
func ValidateStudent(registry BlockChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(HeaderStudentSession)
		if sessionID == "" {
			response.BadRequest(c, "student session id is required")
			c.Abort()
			return
		}
		blocked, err := registry.IsBlocked(c.Request.Context(), sessionID)
		if err != nil {
			response.Internal(c, "failed to validate session")
			c.Abort()
			return
		}
		if blocked {
			response.Forbidden(c, "you have been removed from this poll")
			c.Abort()
			return
		}
		c.Next()
	}
}
