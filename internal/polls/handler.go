package polls

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/httperr"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/response"
)

// Notifier receives lifecycle events so the real-time layer can broadcast
// them and manage the poll's driving ticker.
type Notifier interface {
	PollCreated(poll *models.Poll)
	PollClosed(poll *models.Poll)
}

// CreateRequest is the body for POST /api/polls.
type CreateRequest struct {
	Question string   `json:"question" binding:"required"`
	Options  []string `json:"options" binding:"required"`
	Duration int      `json:"duration" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	service  *Service
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a polls handler.
func NewHandler(service *Service, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{service: service, notifier: notifier, logger: logger}
}

// Create handles POST /api/polls (teacher).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "question, options, and duration are required")
		return
	}
	poll, err := h.service.Create(c.Request.Context(), req.Question, req.Options, req.Duration)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	h.notifier.PollCreated(poll)
	response.Created(c, poll)
}

// Current handles GET /api/polls/current. Returns null data when idle.
func (h *Handler) Current(c *gin.Context) {
	poll, err := h.service.Current(c.Request.Context())
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	response.OK(c, poll)
}

// History handles GET /api/polls/history (teacher).
func (h *Handler) History(c *gin.Context) {
	polls, err := h.service.History(c.Request.Context())
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	if polls == nil {
		polls = []models.Poll{}
	}
	response.OK(c, polls)
}

// End handles POST /api/polls/:id/end (teacher).
func (h *Handler) End(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	poll, err := h.service.End(c.Request.Context(), id)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	h.notifier.PollClosed(poll)
	response.OK(c, poll)
}
