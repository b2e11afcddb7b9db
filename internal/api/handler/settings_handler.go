package handler

import (
	"errors"
	"net/http"

	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

// SettingsHandler covers the admin settings surface: email, backups,
// styling, log viewing and migration status.
type SettingsHandler struct {
	emailService  *service.EmailService
	backupService *service.BackupService
	settingsRepo  repository.SettingsRepository
	logRepo       repository.ApplicationLogRepository
	migrationRepo repository.MigrationRepository
}

func NewSettingsHandler(
	emailService *service.EmailService,
	backupService *service.BackupService,
	settingsRepo repository.SettingsRepository,
	logRepo repository.ApplicationLogRepository,
	migrationRepo repository.MigrationRepository,
) *SettingsHandler {
	return &SettingsHandler{
		emailService:  emailService,
		backupService: backupService,
		settingsRepo:  settingsRepo,
		logRepo:       logRepo,
		migrationRepo: migrationRepo,
	}
}

// --- Email ---

// GET /admin/settings/email
func (h *SettingsHandler) GetEmailSettings(c *gin.Context) {
	settings, err := h.emailService.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not load email settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PUT /admin/settings/email
func (h *SettingsHandler) UpdateEmailSettings(c *gin.Context) {
	var dto domain.EmailSettingsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	settings, err := h.emailService.UpdateSettings(c.Request.Context(), dto)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not save email settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// POST /admin/settings/email/test
func (h *SettingsHandler) SendTestEmail(c *gin.Context) {
	var dto domain.TestEmailDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.emailService.SendTest(c.Request.Context(), dto.Recipient); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailDisabled), errors.Is(err, service.ErrEmailNotConfigured):
			response.Error(c, http.StatusConflict, err.Error())
		default:
			response.Error(c, http.StatusBadGateway, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// --- Backups ---

// GET /admin/settings/backup
func (h *SettingsHandler) GetBackupSettings(c *gin.Context) {
	settings, err := h.backupService.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not load backup settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PUT /admin/settings/backup
func (h *SettingsHandler) UpdateBackupSettings(c *gin.Context) {
	var dto domain.BackupSettingsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	settings, err := h.backupService.UpdateSettings(c.Request.Context(), dto)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not save backup settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// POST /admin/settings/backup/run
func (h *SettingsHandler) RunBackup(c *gin.Context) {
	key, err := h.backupService.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrBackupNotConfigured) {
			response.Error(c, http.StatusConflict, err.Error())
			return
		}
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key})
}

// GET /admin/settings/backup/list
func (h *SettingsHandler) ListBackups(c *gin.Context) {
	backups, err := h.backupService.List(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrBackupNotConfigured) {
			response.Error(c, http.StatusConflict, err.Error())
			return
		}
		response.Error(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, backups)
}

// --- Styling ---

// GET /styling is public so the login page can apply branding before
// authentication.
func (h *SettingsHandler) GetStyling(c *gin.Context) {
	entries, err := h.settingsRepo.GetStyling(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not load styling")
		return
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	c.JSON(http.StatusOK, out)
}

// PUT /admin/settings/styling
func (h *SettingsHandler) UpdateStyling(c *gin.Context) {
	var dto domain.StylingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.settingsRepo.SetStyling(c.Request.Context(), dto.Entries); err != nil {
		response.Error(c, http.StatusInternalServerError, "could not save styling")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Logs ---

// GET /admin/logs?level=&component=&limit=
func (h *SettingsHandler) GetLogs(c *gin.Context) {
	var filter domain.LogFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := h.logRepo.Find(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not load logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

// --- Migrations ---

// GET /admin/migrations
func (h *SettingsHandler) GetMigrations(c *gin.Context) {
	versions, err := h.migrationRepo.AppliedVersions(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not load migration status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": versions})
}
