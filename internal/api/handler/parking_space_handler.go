package handler

import (
	"errors"
	"net/http"
	"strconv"

	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingSpaceHandler struct {
	parkingService *service.ParkingService
}

func NewParkingSpaceHandler(ps *service.ParkingService) *ParkingSpaceHandler {
	return &ParkingSpaceHandler{parkingService: ps}
}

// GET /parking-spaces/:space_id
func (h *ParkingSpaceHandler) GetParkingSpaceByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("space_id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid space id")
		return
	}

	space, err := h.parkingService.GetParkingSpaceByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "parking space not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not load parking space")
		return
	}
	c.JSON(http.StatusOK, space)
}

// PUT /parking-spaces/:space_id
func (h *ParkingSpaceHandler) UpdateParkingSpace(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("space_id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid space id")
		return
	}

	var dto domain.ParkingSpaceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	space, err := h.parkingService.UpdateParkingSpace(c.Request.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Error(c, http.StatusNotFound, "parking space not found")
		case errors.Is(err, repository.ErrDuplicateEntry):
			response.Error(c, http.StatusConflict, "a space with this number already exists in the lot")
		default:
			response.Error(c, http.StatusInternalServerError, "could not update parking space")
		}
		return
	}
	c.JSON(http.StatusOK, space)
}

// DELETE /parking-spaces/:space_id
func (h *ParkingSpaceHandler) DeleteParkingSpace(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("space_id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid space id")
		return
	}

	if err := h.parkingService.DeleteParkingSpace(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "parking space not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not delete parking space")
		return
	}
	c.Status(http.StatusNoContent)
}
