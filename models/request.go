package models

import (
	"strings"
	"time"
)

// TaskRequest is the payload for POST /api/v1/task.
type TaskRequest struct {
	// Task is the natural-language information request. Required.
	Task string `json:"task" binding:"required,min=3,max=500"`

	// MaxAge allows a cached result younger than this many seconds.
	// Default: the server's cache TTL. 0 disables the lookup.
	MaxAge *int `json:"max_age,omitempty" binding:"omitempty,min=0,max=86400"`
}

// Normalize trims surrounding whitespace from the task.
func (r *TaskRequest) Normalize() {
	r.Task = strings.TrimSpace(r.Task)
}

// AnalyzeRequest is the payload for POST /api/v1/analyze (single-URL variant).
type AnalyzeRequest struct {
	// URL is the page to analyze. Required.
	URL string `json:"url" binding:"required,url"`

	// Task is what to look for on the page. Required.
	Task string `json:"task" binding:"required,min=3,max=500"`
}

// PromptRequest is the payload for POST /api/v1/prompts.
type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required,max=2000"`
}

// PromptEntry is one row of the prompt log.
type PromptEntry struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	ClientIP  string    `json:"ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PromptsResponse is the response for GET /api/v1/prompts.
type PromptsResponse struct {
	Success bool          `json:"success"`
	Prompts []PromptEntry `json:"prompts"`
}
