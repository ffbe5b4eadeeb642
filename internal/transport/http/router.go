package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/queuectl/queuectl/internal/health"
	"github.com/queuectl/queuectl/internal/transport/http/handler"
	"github.com/queuectl/queuectl/internal/transport/http/middleware"
)

// NewRouter wires the control-plane HTTP surface: job enqueue/list,
// status, DLQ inspection and retry, runtime config, and liveness/
// readiness probes.
func NewRouter(logger *slog.Logger, jobHandler *handler.JobHandler, dlqHandler *handler.DLQHandler, configHandler *handler.ConfigHandler, checker *health.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Liveness(c.Request.Context()))
	})
	r.GET("/readyz", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})

	jobs := r.Group("/jobs")
	jobs.POST("", jobHandler.Enqueue)
	jobs.GET("", jobHandler.List)

	r.GET("/status", jobHandler.Status)

	dlq := r.Group("/dlq")
	dlq.GET("", dlqHandler.List)
	dlq.POST("/:id/retry", dlqHandler.Retry)

	cfg := r.Group("/config")
	cfg.GET("", configHandler.Get)
	cfg.POST("", configHandler.Set)

	return r
}
