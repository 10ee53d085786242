package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupHealthRoutes registers liveness, readiness and Prometheus endpoints.
func SetupHealthRoutes(router gin.IRouter) {
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/readyz", func(c *gin.Context) {
		c.String(http.StatusOK, "ready")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
