package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webagent/api/handler"
	"github.com/use-agent/webagent/api/middleware"
	"github.com/use-agent/webagent/cache"
	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/promptlog"
	"github.com/use-agent/webagent/webhook"
)

// Agent is what the task endpoints run. *agent.Agent satisfies it.
type Agent interface {
	handler.TaskRunner
	handler.URLAnalyzer
}

// Deps are the collaborators the router wires into handlers. Pool, Cache,
// Prompts and Notifier may be nil.
type Deps struct {
	Agent     Agent
	Pool      handler.PoolReporter
	Cache     *cache.Cache
	Prompts   promptlog.Store
	Notifier  *webhook.Notifier
	StartTime time.Time
	Version   string
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health sits outside auth.
// ctx bounds the rate limiter's cleanup goroutine.
func NewRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(d.Pool, d.StartTime, d.Version))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Task pipeline
	protected.POST("/task", handler.Task(d.Agent, handler.TaskDeps{
		Cache:    d.Cache,
		Prompts:  d.Prompts,
		Notifier: d.Notifier,
	}))
	protected.POST("/analyze", handler.Analyze(d.Agent, d.Prompts))

	// Prompt log
	protected.POST("/prompts", handler.PostPrompt(d.Prompts))
	protected.GET("/prompts", handler.ListPrompts(d.Prompts))

	return r
}
