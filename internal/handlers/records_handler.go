package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/middleware"
	"countdowntodo-sync/internal/repos"
	"countdowntodo-sync/internal/services"
)

type RecordHandler struct {
	svc    *services.RecordService
	logger *logging.Logger
}

func NewRecordHandler(svc *services.RecordService, logger *logging.Logger) *RecordHandler {
	return &RecordHandler{svc: svc, logger: logger}
}

func (h *RecordHandler) PushTodo(c *gin.Context) {
	var body services.PushTodoInput
	if err := bindJSON(c, &body); err != nil {
		writeError(c, h.logger, err)
		return
	}
	rec, applied, err := h.svc.PushTodo(c.Request.Context(), middleware.OwnerIDFromContext(c), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "record": rec})
}

func (h *RecordHandler) DeleteTodo(c *gin.Context) {
	id, in, ok := h.deleteArgs(c)
	if !ok {
		return
	}
	rec, applied, err := h.svc.DeleteTodo(c.Request.Context(), middleware.OwnerIDFromContext(c), id, in)
	h.writeDelete(c, rec, applied, err)
}

func (h *RecordHandler) PullTodos(c *gin.Context) {
	todos, err := h.svc.PullTodos(c.Request.Context(), middleware.OwnerIDFromContext(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (h *RecordHandler) PushCountdown(c *gin.Context) {
	var body services.PushCountdownInput
	if err := bindJSON(c, &body); err != nil {
		writeError(c, h.logger, err)
		return
	}
	rec, applied, err := h.svc.PushCountdown(c.Request.Context(), middleware.OwnerIDFromContext(c), body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "record": rec})
}

func (h *RecordHandler) DeleteCountdown(c *gin.Context) {
	id, in, ok := h.deleteArgs(c)
	if !ok {
		return
	}
	rec, applied, err := h.svc.DeleteCountdown(c.Request.Context(), middleware.OwnerIDFromContext(c), id, in)
	h.writeDelete(c, rec, applied, err)
}

func (h *RecordHandler) PullCountdowns(c *gin.Context) {
	cds, err := h.svc.PullCountdowns(c.Request.Context(), middleware.OwnerIDFromContext(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cds)
}

func (h *RecordHandler) deleteArgs(c *gin.Context) (int64, services.DeleteInput, bool) {
	var in services.DeleteInput
	id, err := parseID(c)
	if err == nil {
		err = bindJSON(c, &in)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return 0, in, false
	}
	return id, in, true
}

// writeDelete reports an unknown id as ok=false rather than an error: the
// record may simply not have reached the server yet.
func (h *RecordHandler) writeDelete(c *gin.Context, rec any, applied bool, err error) {
	switch {
	case errors.Is(err, repos.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{"ok": false, "applied": false})
	case err != nil:
		writeError(c, h.logger, err)
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "applied": applied, "record": rec})
	}
}
