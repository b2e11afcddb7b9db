package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler covers the admin user management endpoints.
type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// POST /api/v1/admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var dto domain.CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	user, err := h.authService.CreateUser(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			response.Error(c, http.StatusConflict, "a user with this email already exists")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GET /api/v1/admin/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := h.authService.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "user not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not load user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// PUT /api/v1/admin/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}
	var dto domain.UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	user, err := h.authService.UpdateUser(c.Request.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Error(c, http.StatusNotFound, "user not found")
		case errors.Is(err, repository.ErrDuplicateEntry):
			response.Error(c, http.StatusConflict, "a user with this email already exists")
		default:
			response.Error(c, http.StatusInternalServerError, "could not update user")
		}
		return
	}
	c.JSON(http.StatusOK, user)
}

// DELETE /api/v1/admin/users/:id
//
// An admin cannot delete their own account; deactivate it first from
// another admin login.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}
	if actor := middleware.CurrentUser(c); actor != nil && actor.ID == id {
		response.Error(c, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.authService.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "user not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/v1/admin/users/:id/password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}
	var dto domain.ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), id, dto, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "user not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not reset password")
		return
	}
	c.Status(http.StatusNoContent)
}
