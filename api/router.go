// Package api serves the scraping operations over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopwalk/api/handler"
	"github.com/use-agent/shopwalk/api/middleware"
	"github.com/use-agent/shopwalk/cache"
	"github.com/use-agent/shopwalk/config"
	"github.com/use-agent/shopwalk/metrics"
)

// Service is what the router serves. *scraper.Scraper satisfies it.
type Service interface {
	handler.Engine
	handler.StatsProvider
}

// Deps are the router's collaborators. Cache and Metrics may be nil.
type Deps struct {
	Service Service
	Config  *config.Config
	Cache   *cache.Cache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Version string

	// Stop ends the rate limiter's background eviction.
	Stop <-chan struct{}
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Observe
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so monitoring probes always work.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Config.Server.Mode)
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Observe(logger, d.Metrics))

	if d.Config.Metrics.Enabled && d.Metrics != nil {
		r.GET(d.Config.Metrics.Path, gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(d.Service, d.Version))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if d.Config.Auth.Enabled {
		protected.Use(middleware.Auth(d.Config.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(d.Config.RateLimit, d.Stop))

	protected.POST("/search", handler.Search(d.Service, d.Cache))

	product := protected.Group("/product")
	product.POST("/details", handler.Details(d.Service, d.Cache))
	product.POST("/images", handler.Images(d.Service, d.Cache))
	product.POST("/reviews", handler.Reviews(d.Service, d.Cache))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}
