package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/scheduler"
)

type DLQHandler struct {
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

func NewDLQHandler(sched *scheduler.Scheduler, logger *slog.Logger) *DLQHandler {
	return &DLQHandler{sched: sched, logger: logger.With("component", "dlq_handler")}
}

// List handles GET /dlq.
func (h *DLQHandler) List(ctx *gin.Context) {
	entries, err := h.sched.ListDLQ(ctx.Request.Context())
	if err != nil {
		h.logger.Error("list dlq", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Retry handles POST /dlq/:id/retry.
func (h *DLQHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.sched.RetryFromDLQ(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "dlq entry not found"})
			return
		}
		h.logger.Error("retry dlq entry", "job_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": id, "state": domain.StatePending})
}
