package recovery

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classpulse/backend/pkg/response"
)

// RestoreRequest is the body for POST /api/state/restore.
type RestoreRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// Handler handles state recovery HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a recovery handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Current handles GET /api/state/current?role=teacher|student&sessionId=xxx.
func (h *Handler) Current(c *gin.Context) {
	role := c.DefaultQuery("role", "student")
	sessionID := c.Query("sessionId")

	switch {
	case role == "teacher":
		response.OK(c, h.service.TeacherState(c.Request.Context()))
	case role == "student" && sessionID != "":
		response.OK(c, h.service.StudentState(c.Request.Context(), sessionID))
	default:
		response.BadRequest(c, "invalid role or missing sessionId for student")
	}
}

// StudentState handles GET /api/state/student/:sessionId.
func (h *Handler) StudentState(c *gin.Context) {
	response.OK(c, h.service.StudentState(c.Request.Context(), c.Param("sessionId")))
}

// Restore handles POST /api/state/restore.
func (h *Handler) Restore(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "sessionId required")
		return
	}
	session := h.service.RestoreSession(c.Request.Context(), req.SessionID)
	if session == nil {
		response.NotFound(c, "session not found or blocked")
		return
	}
	response.OK(c, session)
}
