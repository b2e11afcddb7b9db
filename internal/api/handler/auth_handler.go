package handler

import (
	"errors"
	"net/http"

	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var dto domain.RegisterUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			response.Error(c, http.StatusConflict, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not register user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	auth, err := h.authService.Login(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrUserDisabled):
			response.Error(c, http.StatusForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "login failed")
		}
		return
	}
	c.JSON(http.StatusOK, auth)
}

// GET /api/v1/users/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, http.StatusUnauthorized, "no authenticated user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// PUT /api/v1/users/me/password
func (h *AuthHandler) ChangeOwnPassword(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, http.StatusUnauthorized, "no authenticated user")
		return
	}

	var dto domain.ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.ID, dto, false); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "current password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not change password")
		return
	}
	c.Status(http.StatusNoContent)
}
