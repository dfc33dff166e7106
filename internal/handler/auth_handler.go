package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/response"
	"github.com/stemsi/mcq-exam/internal/service"
	"github.com/stemsi/mcq-exam/internal/validator"
)

// AuthHandler handles admin authentication.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

type adminLoginRequest struct {
	Password string `json:"password" form:"password" binding:"required,max=256"`
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Exchanges the shared admin password for a JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if fields := validator.BindBody(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, exp, err := h.authService.Login(req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAdminDisabled):
		h.log.Warn().Str("ip", c.ClientIP()).Msg("Rejected admin login")
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to issue admin token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp,
	})
}
