package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/receipto/console/service"
)

type SettingsHandler struct {
	backend *service.BackendService
}

func NewSettingsHandler(backend *service.BackendService) *SettingsHandler {
	return &SettingsHandler{backend: backend}
}

// GetSettings returns the current backend settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.backend.GetSettings(c.Request.Context())
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial settings patch
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var updates service.SettingsUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	settings, err := h.backend.UpdateSettings(c.Request.Context(), &updates)
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateAPIKeys stores credentials server-side. The response only carries
// configured flags; raw secrets never come back.
func (h *SettingsHandler) UpdateAPIKeys(c *gin.Context) {
	var updates service.APIKeyUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	settings, err := h.backend.UpdateAPIKeys(c.Request.Context(), &updates)
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateLLMConfig selects the active LLM provider and model
func (h *SettingsHandler) UpdateLLMConfig(c *gin.Context) {
	var cfg service.LLMConfigUpdate
	if err := c.ShouldBindJSON(&cfg); err != nil || cfg.Provider == "" || cfg.Model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	settings, err := h.backend.UpdateLLMConfig(c.Request.Context(), &cfg)
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetLLMModels returns the per-provider model catalog
func (h *SettingsHandler) GetLLMModels(c *gin.Context) {
	models, err := h.backend.GetLLMModels(c.Request.Context())
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, models)
}

// writeBackendError maps a backend failure onto the response. An APIError
// keeps its status and detail so the dashboard always has a readable message.
func writeBackendError(c *gin.Context, err error) {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Detail})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "Backend unavailable: " + err.Error()})
}
