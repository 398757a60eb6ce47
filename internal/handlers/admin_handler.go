package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/services"
)

type AdminHandler struct {
	svc    *services.AdminService
	logger *logging.Logger
}

func NewAdminHandler(svc *services.AdminService, logger *logging.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

func (h *AdminHandler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
