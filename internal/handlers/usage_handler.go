package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/middleware"
	"countdowntodo-sync/internal/services"
	"countdowntodo-sync/internal/usage"
)

type UsageHandler struct {
	svc    *services.UsageService
	logger *logging.Logger
}

func NewUsageHandler(svc *services.UsageService, logger *logging.Logger) *UsageHandler {
	return &UsageHandler{svc: svc, logger: logger}
}

func (h *UsageHandler) PushUsage(c *gin.Context) {
	var body services.PushUsageInput
	if err := bindJSON(c, &body); err != nil {
		writeError(c, h.logger, err)
		return
	}
	n, err := h.svc.PushUsageBatch(c.Request.Context(), middleware.OwnerIDFromContext(c), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "received": n})
}

// Summary serves the aggregated view for ?day=. Optional query parameters
// narrow it: min_duration (seconds), exclude_system and merge_devices.
func (h *UsageHandler) Summary(c *gin.Context) {
	var opts []services.SummaryOption
	if parseBool(c.Query("exclude_system")) {
		opts = append(opts, services.ExcludeSystemApps())
	}
	rows, err := h.svc.PullUsageSummary(c.Request.Context(), middleware.OwnerIDFromContext(c), c.Query("day"), opts...)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if parseBool(c.Query("merge_devices")) {
		rows = usage.CollapseDevices(rows)
	}
	rows = usage.Filter(rows, usage.FilterOptions{MinDuration: parseInt64Default(c.Query("min_duration"), 0)})
	c.JSON(http.StatusOK, rows)
}
