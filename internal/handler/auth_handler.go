package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"invitely/rsvphub/internal/handler/middleware"
	"invitely/rsvphub/internal/service"
	"invitely/rsvphub/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tokenSet, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, service.ErrInvalidLogin) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		response.InternalError(c, "login failed")
		return
	}

	response.Success(c, tokenSet)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		_ = c.Error(err)
		response.InternalError(c, "logout failed")
		return
	}

	response.Success(c, nil)
}

// Me returns the current session's role and event scope.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	response.Success(c, gin.H{
		"username": claims.Subject,
		"role":     claims.Role,
		"events":   claims.Events,
	})
}
