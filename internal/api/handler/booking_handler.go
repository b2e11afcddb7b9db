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

type BookingHandler struct {
	bookingService *service.BookingService
}

func NewBookingHandler(bs *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bs}
}

// POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Error(c, http.StatusUnauthorized, "no authenticated user")
		return
	}

	var dto domain.CreateBookingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	booking, err := h.bookingService.Create(c.Request.Context(), actor, dto)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// GET /bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Error(c, http.StatusUnauthorized, "no authenticated user")
		return
	}

	var filter domain.BookingFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := h.bookingService.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not list bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Error(c, http.StatusUnauthorized, "no authenticated user")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := h.bookingService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// PUT /bookings/:id
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Error(c, http.StatusUnauthorized, "no authenticated user")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	var dto domain.UpdateBookingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	booking, err := h.bookingService.Update(c.Request.Context(), actor, id, dto)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// POST /bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Error(c, http.StatusUnauthorized, "no authenticated user")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := h.bookingService.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// DELETE /bookings/:id (admin)
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	if err := h.bookingService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "booking not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not delete booking")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingConflict):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidInterval),
		errors.Is(err, service.ErrBookingInPast),
		errors.Is(err, service.ErrNotBookable),
		errors.Is(err, service.ErrBookingNotActive):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		response.Error(c, http.StatusNotFound, "booking not found")
	default:
		response.Error(c, http.StatusInternalServerError, "booking operation failed")
	}
}
