package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/linkstash/api/handler"
	"github.com/use-agent/linkstash/api/middleware"
	"github.com/use-agent/linkstash/cache"
	"github.com/use-agent/linkstash/config"
)

// Deps are the collaborators the routes serve from. Summarizer and Cache may
// be nil.
type Deps struct {
	Ingester   handler.Ingester
	Summarizer handler.Summarizer
	Probe      handler.HealthProbe
	Cache      *cache.Cache
	StartTime  time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds the background work the middleware starts.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health sits outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(deps.Probe, deps.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/ingest", handler.Ingest(deps.Ingester, deps.Summarizer, deps.Cache))
	protected.POST("/ingest/batch", handler.PostBatch(deps.Ingester, cfg.Server.BatchConcurrency))

	return r
}
