package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alert-service/internal/logging"
)

// NewRouter wires the alert API under basePath. /health is served at the
// root, and /metrics when metrics is non-nil.
func NewRouter(h *Handler, logger *logging.Logger, basePath string, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(basePath)
	{
		// Alerts
		api.POST("/alerts", h.CreateAlert)
		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/logs", h.QueryLogs)
		api.GET("/alerts/:id", h.GetAlert)
		api.PATCH("/alerts/:id/active", h.ToggleAlert)
		api.DELETE("/alerts/:id", h.DeleteAlert)

		// Task completion callback
		api.POST("/tasks/:id/completed", h.TaskCompleted)
	}

	r.GET("/health", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	return r
}
