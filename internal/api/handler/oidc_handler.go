package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

type OIDCHandler struct {
	oidcService *service.OIDCService
}

func NewOIDCHandler(oidcService *service.OIDCService) *OIDCHandler {
	return &OIDCHandler{oidcService: oidcService}
}

// GET /auth/oidc/providers
func (h *OIDCHandler) ListPublicProviders(c *gin.Context) {
	providers, err := h.oidcService.PublicProviders(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not list providers")
		return
	}
	c.JSON(http.StatusOK, providers)
}

// GET /auth/oidc/:provider/login
func (h *OIDCHandler) Login(c *gin.Context) {
	authURL, err := h.oidcService.BeginLogin(c.Request.Context(), c.Param("provider"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Error(c, http.StatusNotFound, "unknown provider")
		case errors.Is(err, service.ErrProviderDisabled):
			response.Error(c, http.StatusForbidden, err.Error())
		default:
			response.Error(c, http.StatusBadGateway, "could not reach identity provider")
		}
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// GET /auth/oidc/:provider/callback
//
// The identity provider sends the browser here, so failures redirect back
// to the login page instead of rendering JSON.
func (h *OIDCHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.Redirect(http.StatusFound, "/#error="+url.QueryEscape("missing state or code"))
		return
	}

	auth, err := h.oidcService.HandleCallback(c.Request.Context(), c.Param("provider"), state, code)
	if err != nil {
		detail := "login failed"
		switch {
		case errors.Is(err, service.ErrStateInvalid):
			detail = "login state is invalid or expired"
		case errors.Is(err, service.ErrUserDisabled):
			detail = "user account is disabled"
		case errors.Is(err, service.ErrProvisioningFailed):
			detail = "could not provision user"
		}
		c.Redirect(http.StatusFound, "/#error="+url.QueryEscape(detail))
		return
	}
	c.Redirect(http.StatusFound, "/#token="+url.QueryEscape(auth.Token))
}

// --- Admin provider management ---

// GET /api/v1/admin/oidc/providers
func (h *OIDCHandler) ListProviders(c *gin.Context) {
	providers, err := h.oidcService.ListProviders(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not list providers")
		return
	}
	c.JSON(http.StatusOK, providers)
}

// POST /api/v1/admin/oidc/providers
func (h *OIDCHandler) CreateProvider(c *gin.Context) {
	var dto domain.OIDCProviderDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	provider, err := h.oidcService.CreateProvider(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			response.Error(c, http.StatusConflict, "a provider with this name already exists")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not create provider")
		return
	}
	c.JSON(http.StatusCreated, provider)
}

// GET /api/v1/admin/oidc/providers/:id
func (h *OIDCHandler) GetProvider(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid provider id")
		return
	}
	provider, err := h.oidcService.GetProvider(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "provider not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not load provider")
		return
	}
	c.JSON(http.StatusOK, provider)
}

// PUT /api/v1/admin/oidc/providers/:id
func (h *OIDCHandler) UpdateProvider(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid provider id")
		return
	}
	var dto domain.OIDCProviderDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	provider, err := h.oidcService.UpdateProvider(c.Request.Context(), id, dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Error(c, http.StatusNotFound, "provider not found")
		case errors.Is(err, repository.ErrDuplicateEntry):
			response.Error(c, http.StatusConflict, "a provider with this name already exists")
		default:
			response.Error(c, http.StatusInternalServerError, "could not update provider")
		}
		return
	}
	c.JSON(http.StatusOK, provider)
}

// DELETE /api/v1/admin/oidc/providers/:id
func (h *OIDCHandler) DeleteProvider(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid provider id")
		return
	}
	if err := h.oidcService.DeleteProvider(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "provider not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not delete provider")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/admin/oidc/providers/:id/claim-mappings
func (h *OIDCHandler) ListClaimMappings(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid provider id")
		return
	}
	mappings, err := h.oidcService.ListClaimMappings(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "provider not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not list claim mappings")
		return
	}
	c.JSON(http.StatusOK, mappings)
}

// POST /api/v1/admin/oidc/providers/:id/claim-mappings
func (h *OIDCHandler) CreateClaimMapping(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid provider id")
		return
	}
	var dto domain.OIDCClaimMappingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	mapping, err := h.oidcService.CreateClaimMapping(c.Request.Context(), id, dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "provider not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not create claim mapping")
		return
	}
	c.JSON(http.StatusCreated, mapping)
}

// PUT /api/v1/admin/oidc/claim-mappings/:id
func (h *OIDCHandler) UpdateClaimMapping(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid claim mapping id")
		return
	}
	var dto domain.OIDCClaimMappingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	mapping, err := h.oidcService.UpdateClaimMapping(c.Request.Context(), id, dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "claim mapping not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not update claim mapping")
		return
	}
	c.JSON(http.StatusOK, mapping)
}

// DELETE /api/v1/admin/oidc/claim-mappings/:id
func (h *OIDCHandler) DeleteClaimMapping(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid claim mapping id")
		return
	}
	if err := h.oidcService.DeleteClaimMapping(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "claim mapping not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "could not delete claim mapping")
		return
	}
	c.Status(http.StatusNoContent)
}
