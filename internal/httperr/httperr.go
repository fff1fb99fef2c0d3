// Package httperr maps domain errors to HTTP responses so every handler
// surfaces the same taxonomy regardless of which code path rejected the call.
package httperr

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/apperr"
	"github.com/classpulse/backend/pkg/response"
)

// Write sends the HTTP response for err. Domain errors get their specific
// status and message; anything else is logged and surfaced generically.
func Write(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrActivePollExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, apperr.ErrDuplicateVote):
		response.Conflict(c, err.Error())
	case errors.Is(err, apperr.ErrPollNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, apperr.ErrPollNotActive),
		errors.Is(err, apperr.ErrInvalidOption),
		errors.Is(err, apperr.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, apperr.ErrStudentBlocked):
		response.Forbidden(c, err.Error())
	default:
		logger.Error("unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "an unexpected error occurred")
	}
}
