package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webagent/cache"
	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/promptlog"
	"github.com/use-agent/webagent/webhook"
)

// TaskRunner runs the full pipeline. *agent.Agent satisfies it.
type TaskRunner interface {
	Run(ctx context.Context, task string) (*models.AggregateResult, error)
}

// URLAnalyzer summarizes one page. *agent.Agent satisfies it.
type URLAnalyzer interface {
	AnalyzeURL(ctx context.Context, url, task string) (*models.AggregateResult, error)
}

// TaskDeps are the optional collaborators of the task handler. Nil fields
// are skipped.
type TaskDeps struct {
	Cache    *cache.Cache
	Prompts  promptlog.Store
	Notifier *webhook.Notifier
}

// Task returns a handler for POST /api/v1/task.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Record the prompt (best effort).
//  3. Cache lookup.
//  4. Run the pipeline.
//  5. Cache store, webhook, respond.
func Task(runner TaskRunner, deps TaskDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, models.ErrCodeInvalidInput, err.Error())
			return
		}
		req.Normalize()
		if utf8.RuneCountInString(req.Task) < 3 {
			abortError(c, models.ErrCodeInvalidInput, "task must be at least 3 characters")
			return
		}

		// ── 2. Prompt log ───────────────────────────────────────────
		recordPrompt(c, deps.Prompts, req.Task)

		// ── 3. Cache lookup ─────────────────────────────────────────
		key := cache.Key(req.Task)
		maxAge := deps.Cache.TTL()
		if req.MaxAge != nil {
			maxAge = time.Duration(*req.MaxAge) * time.Second
		}
		if deps.Cache.Enabled() {
			if cached, hit := deps.Cache.Get(key, maxAge); hit {
				c.Header("X-Cache", "hit")
				c.JSON(http.StatusOK, models.TaskResponse{Success: true, Data: cached})
				return
			}
		}

		// ── 4. Run ──────────────────────────────────────────────────
		res, err := runner.Run(c.Request.Context(), req.Task)
		if err != nil {
			slog.Warn("task failed", "task", req.Task, "code", models.CodeOf(err), "error", err)
			deps.Notifier.DeliverAsync(webhook.TaskFailed("", req.Task, err))
			respondError(c, err)
			return
		}

		// ── 5. Store, notify, respond ───────────────────────────────
		if deps.Cache.Enabled() {
			deps.Cache.Set(key, res)
			c.Header("X-Cache", "miss")
		}
		deps.Notifier.DeliverAsync(webhook.TaskCompleted(res))
		c.JSON(http.StatusOK, models.TaskResponse{Success: true, Data: res})
	}
}

// Analyze returns a handler for POST /api/v1/analyze, the single-URL variant.
func Analyze(an URLAnalyzer, prompts promptlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, models.ErrCodeInvalidInput, err.Error())
			return
		}

		recordPrompt(c, prompts, req.Task)

		res, err := an.AnalyzeURL(c.Request.Context(), req.URL, req.Task)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.TaskResponse{Success: true, Data: res})
	}
}

func recordPrompt(c *gin.Context, store promptlog.Store, prompt string) {
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := store.Save(ctx, models.PromptEntry{Prompt: prompt, ClientIP: c.ClientIP()}); err != nil {
		slog.Warn("prompt log write failed", "error", err)
	}
}
