package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(rs *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

// GET /admin/reports/templates
func (h *ReportHandler) ListTemplates(c *gin.Context) {
	templates, err := h.reportService.ListTemplates(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not list report templates")
		return
	}
	c.JSON(http.StatusOK, templates)
}

// POST /admin/reports/templates
func (h *ReportHandler) CreateTemplate(c *gin.Context) {
	var dto domain.ReportTemplateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	template, err := h.reportService.CreateTemplate(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrUnknownColumn) {
			response.Error(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not create report template")
		return
	}
	c.JSON(http.StatusCreated, template)
}

// GET /admin/reports/templates/:id
func (h *ReportHandler) GetTemplate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid template id")
		return
	}
	template, err := h.reportService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "report template not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not load report template")
		return
	}
	c.JSON(http.StatusOK, template)
}

// PUT /admin/reports/templates/:id
func (h *ReportHandler) UpdateTemplate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid template id")
		return
	}
	var dto domain.ReportTemplateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	template, err := h.reportService.UpdateTemplate(c.Request.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Error(c, http.StatusNotFound, "report template not found")
		case errors.Is(err, service.ErrUnknownColumn):
			response.Error(c, http.StatusUnprocessableEntity, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "could not update report template")
		}
		return
	}
	c.JSON(http.StatusOK, template)
}

// DELETE /admin/reports/templates/:id
func (h *ReportHandler) DeleteTemplate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid template id")
		return
	}
	if err := h.reportService.DeleteTemplate(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "report template not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not delete report template")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /admin/reports/templates/:id/download?format=csv|xlsx&from=...&to=...
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid template id")
		return
	}

	var filter domain.BookingFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	format := c.DefaultQuery("format", service.FormatCSV)
	content, filename, err := h.reportService.Generate(c.Request.Context(), id, format, filter)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "report template not found")
			return
		}
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	contentType := "text/csv"
	if format == service.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, content)
}

// POST /admin/reports/templates/:id/run
//
// Generates the report immediately and emails it to the template
// recipients, same as a scheduled run.
func (h *ReportHandler) RunTemplate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid template id")
		return
	}

	template, err := h.reportService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "report template not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not load report template")
		return
	}

	if err := h.reportService.RunScheduled(c.Request.Context(), template); err != nil {
		switch {
		case errors.Is(err, service.ErrNoRecipients):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmailDisabled), errors.Is(err, service.ErrEmailNotConfigured):
			response.Error(c, http.StatusConflict, err.Error())
		default:
			response.Error(c, http.StatusBadGateway, "report delivery failed")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
