package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingLotHandler struct {
	parkingService *service.ParkingService
}

func NewParkingLotHandler(ps *service.ParkingService) *ParkingLotHandler {
	return &ParkingLotHandler{parkingService: ps}
}

// POST /parking-lots
func (h *ParkingLotHandler) CreateParkingLot(c *gin.Context) {
	var dto domain.ParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	lot, err := h.parkingService.CreateParkingLot(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			response.Error(c, http.StatusConflict, "a lot with this name already exists")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not create parking lot")
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// GET /parking-lots
func (h *ParkingLotHandler) GetAllParkingLots(c *gin.Context) {
	lots, err := h.parkingService.GetAllParkingLots(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not list parking lots")
		return
	}
	c.JSON(http.StatusOK, lots)
}

// GET /parking-lots/:id
func (h *ParkingLotHandler) GetParkingLotByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid lot id")
		return
	}

	lot, err := h.parkingService.GetParkingLotByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "parking lot not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not load parking lot")
		return
	}
	c.JSON(http.StatusOK, lot)
}

// PUT /parking-lots/:id
func (h *ParkingLotHandler) UpdateParkingLot(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid lot id")
		return
	}

	var dto domain.ParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	lot, err := h.parkingService.UpdateParkingLot(c.Request.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Error(c, http.StatusNotFound, "parking lot not found")
		case errors.Is(err, repository.ErrDuplicateEntry):
			response.Error(c, http.StatusConflict, "a lot with this name already exists")
		default:
			response.Error(c, http.StatusInternalServerError, "could not update parking lot")
		}
		return
	}
	c.JSON(http.StatusOK, lot)
}

// DELETE /parking-lots/:id
func (h *ParkingLotHandler) DeleteParkingLot(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid lot id")
		return
	}

	if err := h.parkingService.DeleteParkingLot(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "parking lot not found")
			return
		}
		response.Error(c, http.StatusConflict, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /parking-lots/:id/spaces
func (h *ParkingLotHandler) CreateSpace(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid lot id")
		return
	}

	var dto domain.ParkingSpaceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	space, err := h.parkingService.CreateParkingSpace(c.Request.Context(), lotID, dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			response.Error(c, http.StatusConflict, "a space with this number already exists in the lot")
			return
		}
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, space)
}

// GET /parking-lots/:id/spaces
func (h *ParkingLotHandler) GetSpaces(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid lot id")
		return
	}

	spaces, err := h.parkingService.GetSpacesByLotID(c.Request.Context(), lotID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not list spaces")
		return
	}
	c.JSON(http.StatusOK, spaces)
}

// PUT /parking-lots/:id/layout
//
// Bulk-saves the canvas geometry of every space in the lot from the
// layout editor.
func (h *ParkingLotHandler) UpdateLayout(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid lot id")
		return
	}

	var layout []domain.SpaceLayoutDTO
	if err := c.ShouldBindJSON(&layout); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.parkingService.UpdateLayout(c.Request.Context(), lotID, layout); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "parking lot not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not save layout")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /parking-lots/:id/availability?start=...&end=...
func (h *ParkingLotHandler) GetAvailability(c *gin.Context) {
	lotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid lot id")
		return
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "start must be an RFC 3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "end must be an RFC 3339 timestamp")
		return
	}

	availability, err := h.parkingService.GetAvailability(c.Request.Context(), lotID, start, end)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "parking lot not found")
			return
		}
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, availability)
}
