package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/services"
)

type MappingHandler struct {
	svc    *services.MappingService
	logger *logging.Logger
}

func NewMappingHandler(svc *services.MappingService, logger *logging.Logger) *MappingHandler {
	return &MappingHandler{svc: svc, logger: logger}
}

func (h *MappingHandler) List(c *gin.Context) {
	ms, err := h.svc.PullIdentityMappings(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

type replaceMappingsRequest struct {
	Mappings []models.IdentityMapping `json:"mappings" binding:"required"`
}

// Replace swaps the whole table.
func (h *MappingHandler) Replace(c *gin.Context) {
	h.write(c, h.svc.ReplaceMappings)
}

// Merge adds or updates entries without removing others.
func (h *MappingHandler) Merge(c *gin.Context) {
	h.write(c, h.svc.MergeMappings)
}

func (h *MappingHandler) write(c *gin.Context, apply func(context.Context, []models.IdentityMapping) (int, error)) {
	var body replaceMappingsRequest
	if err := bindJSON(c, &body); err != nil {
		writeError(c, h.logger, err)
		return
	}
	n, err := apply(c.Request.Context(), body.Mappings)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": n})
}
