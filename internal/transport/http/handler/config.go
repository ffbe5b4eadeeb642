package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/queuectl/queuectl/internal/scheduler"
)

type ConfigHandler struct {
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

func NewConfigHandler(sched *scheduler.Scheduler, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{sched: sched, logger: logger.With("component", "config_handler")}
}

// Get handles GET /config?key=max_retries.
func (h *ConfigHandler) Get(ctx *gin.Context) {
	key := ctx.Query("key")
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing query param: key"})
		return
	}

	value, ok, err := h.sched.ConfigGet(ctx.Request.Context(), key)
	if err != nil {
		h.logger.Error("config get", "key", key, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "config key not set"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

type setConfigRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// Set handles POST /config.
func (h *ConfigHandler) Set(ctx *gin.Context) {
	var req setConfigRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sched.ConfigSet(ctx.Request.Context(), req.Key, req.Value); err != nil {
		h.logger.Error("config set", "key", req.Key, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"key": req.Key, "value": req.Value})
}
