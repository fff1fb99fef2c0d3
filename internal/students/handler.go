package students

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/httperr"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/response"
)

// Notifier receives removal events so the real-time layer can disconnect the
// student's channel and refresh the teacher's roster.
type Notifier interface {
	StudentRemoved(sessionID string, pollID uuid.UUID)
}

// Handler handles student HTTP endpoints.
type Handler struct {
	registry *Registry
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a students handler.
func NewHandler(registry *Registry, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, notifier: notifier, logger: logger}
}

// Remove handles DELETE /api/students/:sessionId (teacher).
func (h *Handler) Remove(c *gin.Context) {
	sessionID := c.Param("sessionId")
	session, err := h.registry.Session(c.Request.Context(), sessionID)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	if err := h.registry.Remove(c.Request.Context(), sessionID); err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	if session != nil {
		h.notifier.StudentRemoved(sessionID, session.PollID)
	}
	response.OK(c, gin.H{"removed": true})
}

// ListByPoll handles GET /api/students/poll/:pollId (teacher).
func (h *Handler) ListByPoll(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("pollId"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	list, err := h.registry.ActiveStudents(c.Request.Context(), pollID)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	if list == nil {
		list = []models.StudentSession{}
	}
	response.OK(c, list)
}
