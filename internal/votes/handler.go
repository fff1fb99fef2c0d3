package votes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/httperr"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/response"
)

// Notifier receives vote events so the real-time layer can push the
// role-scoped aggregate updates.
type Notifier interface {
	VoteSubmitted(pollID uuid.UUID)
}

// SubmitRequest is the body for POST /api/votes. The session id travels in
// the X-Student-Session-Id header, matching the websocket identity.
type SubmitRequest struct {
	PollID      uuid.UUID `json:"pollId" binding:"required"`
	OptionID    uuid.UUID `json:"optionId" binding:"required"`
	StudentName string    `json:"studentName" binding:"required"`
}

// TeacherResults is the full results payload for the teacher view.
type TeacherResults struct {
	Poll          *models.Poll          `json:"poll"`
	TotalVotes    int                   `json:"totalVotes"`
	Results       []models.VoteResult   `json:"results"`
	DetailedVotes []models.DetailedVote `json:"detailedVotes"`
}

// StudentResults is the aggregate-only payload for the student view; it
// never carries other students' identities.
type StudentResults struct {
	Poll       *models.Poll        `json:"poll"`
	TotalVotes int                 `json:"totalVotes"`
	Results    []models.VoteResult `json:"results"`
	HasVoted   bool                `json:"hasVoted"`
	UserVote   *uuid.UUID          `json:"userVote,omitempty"`
}

// Handler handles vote HTTP endpoints.
type Handler struct {
	ledger   *Ledger
	polls    PollSource
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a votes handler.
func NewHandler(ledger *Ledger, polls PollSource, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{ledger: ledger, polls: polls, notifier: notifier, logger: logger}
}

// Submit handles POST /api/votes (student; blocked sessions rejected by middleware).
func (h *Handler) Submit(c *gin.Context) {
	sessionID := c.GetHeader(middleware.HeaderStudentSession)
	if sessionID == "" {
		response.BadRequest(c, "student session id is required")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "pollId, optionId, and studentName are required")
		return
	}
	vote, err := h.ledger.Submit(c.Request.Context(), req.PollID, req.OptionID, sessionID, req.StudentName)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	h.notifier.VoteSubmitted(req.PollID)
	response.Created(c, vote)
}

// Results handles GET /api/polls/:id/results. Teachers (role=teacher query)
// get detailed votes; students get aggregates plus their own vote status.
func (h *Handler) Results(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	poll, err := h.polls.ByID(c.Request.Context(), pollID)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	if poll == nil {
		response.NotFound(c, "poll not found")
		return
	}

	results, err := h.ledger.Results(c.Request.Context(), pollID)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}
	total, err := h.ledger.Total(c.Request.Context(), pollID)
	if err != nil {
		httperr.Write(c, h.logger, err)
		return
	}

	if c.Query("role") == "teacher" {
		detailed, err := h.ledger.Detailed(c.Request.Context(), pollID)
		if err != nil {
			httperr.Write(c, h.logger, err)
			return
		}
		response.OK(c, TeacherResults{Poll: poll, TotalVotes: total, Results: results, DetailedVotes: detailed})
		return
	}

	out := StudentResults{Poll: poll, TotalVotes: total, Results: results}
	if sessionID := c.GetHeader(middleware.HeaderStudentSession); sessionID != "" {
		hasVoted, err := h.ledger.HasVoted(c.Request.Context(), pollID, sessionID)
		if err != nil {
			httperr.Write(c, h.logger, err)
			return
		}
		out.HasVoted = hasVoted
		if hasVoted {
			out.UserVote, err = h.ledger.StudentVote(c.Request.Context(), pollID, sessionID)
			if err != nil {
				httperr.Write(c, h.logger, err)
				return
			}
		}
	}
	response.OK(c, out)
}
