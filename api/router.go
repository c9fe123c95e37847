package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopcrawl/shopcrawl/api/handler"
	"github.com/shopcrawl/shopcrawl/api/middleware"
	"github.com/shopcrawl/shopcrawl/cache"
	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/crawler"
	"github.com/shopcrawl/shopcrawl/extractor"
	"github.com/shopcrawl/shopcrawl/fetcher"
	"github.com/shopcrawl/shopcrawl/sink"
	"github.com/shopcrawl/shopcrawl/sitemap"
)

// Deps bundles the services the router wires into handlers.
type Deps struct {
	Fetcher   *fetcher.Fetcher
	Resolver  *sitemap.Resolver
	Extractor *extractor.Extractor
	Crawler   *crawler.Crawler
	Sink      sink.Sink
	Cache     *cache.Cache
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(deps.StartTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Crawl
	protected.POST("/crawl", handler.PostCrawl(deps.Crawler, deps.Sink))
	protected.GET("/crawl/:id", handler.GetCrawl())

	// Sitemap resolution only
	protected.POST("/sitemaps", handler.PostSitemaps(deps.Resolver))

	// Single-page extraction
	protected.POST("/extract", handler.Extract(deps.Fetcher, deps.Extractor, deps.Cache))

	return r
}
