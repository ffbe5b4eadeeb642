package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/queuectl/queuectl/internal/domain"
	"github.com/queuectl/queuectl/internal/scheduler"
)

type JobHandler struct {
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

func NewJobHandler(sched *scheduler.Scheduler, logger *slog.Logger) *JobHandler {
	return &JobHandler{sched: sched, logger: logger.With("component", "job_handler")}
}

type enqueueRequest struct {
	ID         string `json:"id" binding:"required"`
	Command    string `json:"command" binding:"required"`
	MaxRetries *int   `json:"max_retries"`
	Attempts   int    `json:"attempts"`
	RunAt      string `json:"run_at"`
	Priority   int    `json:"priority"`
}

// Enqueue handles POST /jobs.
func (h *JobHandler) Enqueue(ctx *gin.Context) {
	var req enqueueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.sched.Enqueue(ctx.Request.Context(), domain.EnqueueInput{
		ID:         req.ID,
		Command:    req.Command,
		MaxRetries: req.MaxRetries,
		Attempts:   req.Attempts,
		RunAt:      req.RunAt,
		Priority:   req.Priority,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, domain.ErrDuplicateID) {
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("enqueue job", "job_id", req.ID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"id": req.ID, "state": domain.StatePending})
}

// List handles GET /jobs?state=pending.
func (h *JobHandler) List(ctx *gin.Context) {
	state := ctx.Query("state")

	jobs, err := h.sched.ListJobs(ctx.Request.Context(), state)
	if err != nil {
		h.logger.Error("list jobs", "state", state, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Status handles GET /status.
func (h *JobHandler) Status(ctx *gin.Context) {
	snap, err := h.sched.SnapshotStatus(ctx.Request.Context())
	if err != nil {
		h.logger.Error("snapshot status", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, snap)
}
