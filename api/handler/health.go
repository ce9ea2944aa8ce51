package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/linkstash/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// HealthProbe exposes the engine state the health endpoint reports.
// *engine.Dispatcher implements it.
type HealthProbe interface {
	LearnedHosts() int
	RenderReady() bool
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when no rendering engine can serve, since JS-required
// hosts then fall through to the metadata service.
func Health(probe HealthProbe, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready := probe.RenderReady()
		status := "healthy"
		if !ready {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:      status,
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			LearnedJS:   probe.LearnedHosts(),
			RenderReady: ready,
			Version:     Version,
		})
	}
}
