package auth

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/pkg/response"
	"github.com/classpulse/backend/pkg/utils"
)

// LoginRequest is the body for POST /api/auth/teacher.
type LoginRequest struct {
	AccessCode string `json:"accessCode" binding:"required"`
}

// Handler exchanges the teacher access code for a JWT.
type Handler struct {
	cfg    config.AuthConfig
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(cfg config.AuthConfig, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{cfg: cfg, jwt: jwt, logger: logger}
}

// Login handles POST /api/auth/teacher.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "accessCode is required")
		return
	}
	if !h.verify(req.AccessCode) {
		response.Unauthorized(c, "invalid access code")
		return
	}
	token, err := h.jwt.Generate(RoleTeacher)
	if err != nil {
		h.logger.Error("generate teacher token", zap.Error(err))
		response.Internal(c, "failed to issue token")
		return
	}
	response.OK(c, gin.H{"token": token, "role": RoleTeacher})
}

func (h *Handler) verify(code string) bool {
	if h.cfg.TeacherCodeHash != "" {
		return utils.CheckSecret(code, h.cfg.TeacherCodeHash)
	}
	// Plain comparison is a dev fallback only.
	return subtle.ConstantTimeCompare([]byte(code), []byte(h.cfg.TeacherCode)) == 1
}
