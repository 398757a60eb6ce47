package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/middleware"
	"countdowntodo-sync/internal/services"
)

type LeaderboardHandler struct {
	svc    *services.LeaderboardService
	logger *logging.Logger
}

func NewLeaderboardHandler(svc *services.LeaderboardService, logger *logging.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{svc: svc, logger: logger}
}

func (h *LeaderboardHandler) Submit(c *gin.Context) {
	var body services.SubmitScoreInput
	if err := bindJSON(c, &body); err != nil {
		writeError(c, h.logger, err)
		return
	}
	e, err := h.svc.Submit(c.Request.Context(), middleware.OwnerIDFromContext(c), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *LeaderboardHandler) Top(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	top, err := h.svc.Top(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, top)
}
