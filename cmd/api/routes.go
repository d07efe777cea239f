package main

import (
	"net/http"

	"evolutech-console/internal/httpapi"
	"evolutech-console/internal/metrics"
	"evolutech-console/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, h *httpapi.Handlers, gatherer prometheus.Gatherer, checks map[string]utils.Check) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if failed := utils.Readiness(c.Request.Context(), checks); len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))

	h.Routes(r)
}
