package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/promptlog"
)

// PostPrompt returns a handler for POST /api/v1/prompts.
func PostPrompt(store promptlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			abortError(c, models.ErrCodeConfigMissing, "prompt log is disabled")
			return
		}
		var req models.PromptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, models.ErrCodeInvalidInput, err.Error())
			return
		}
		if err := store.Save(c.Request.Context(), models.PromptEntry{Prompt: req.Prompt, ClientIP: c.ClientIP()}); err != nil {
			slog.Error("saving prompt failed", "error", err)
			abortError(c, models.ErrCodeInternal, "error saving prompt")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ListPrompts returns a handler for GET /api/v1/prompts?limit=N.
func ListPrompts(store promptlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			abortError(c, models.ErrCodeConfigMissing, "prompt log is disabled")
			return
		}
		limit := promptlog.DefaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > promptlog.MaxLimit {
				abortError(c, models.ErrCodeInvalidInput, "limit must be between 1 and 100")
				return
			}
			limit = n
		}
		entries, err := store.Recent(c.Request.Context(), limit)
		if err != nil {
			slog.Error("fetching prompts failed", "error", err)
			abortError(c, models.ErrCodeInternal, "error fetching prompts")
			return
		}
		c.JSON(http.StatusOK, models.PromptsResponse{Success: true, Prompts: entries})
	}
}
