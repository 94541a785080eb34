package models

// AggregateResult is the terminal output of one task.
type AggregateResult struct {
	// ID identifies this run in logs and webhook events.
	ID string `json:"id"`

	// Task is the task as submitted.
	Task string `json:"task"`

	// Query is the search query that produced the sources.
	Query string `json:"query,omitempty"`

	// Broadened is true when the sources came from the broadened retry.
	Broadened bool `json:"broadened,omitempty"`

	// Analysis is the LLM completion text.
	Analysis string `json:"analysis"`

	// Screenshots holds images for the subset of sites that requested one.
	Screenshots []Screenshot `json:"screenshots"`

	// Sources lists the URLs whose content went into the prompt.
	Sources []string `json:"sources"`

	// Usage reports LLM token consumption when the provider returns it.
	Usage *LLMUsage `json:"llm_usage,omitempty"`

	// Timing breaks down where the time went.
	Timing TimingInfo `json:"timing"`
}

// LLMUsage reports token consumption from the LLM call.
type LLMUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs         int64 `json:"total_ms"`
	DiscoveryMs     int64 `json:"discovery_ms"`
	AnalysisMs      int64 `json:"analysis_ms"`
	SummarizationMs int64 `json:"summarization_ms"`
}

// TaskResponse is the success envelope for /task and /analyze.
type TaskResponse struct {
	Success bool             `json:"success"`
	Data    *AggregateResult `json:"data"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string     `json:"status"` // "healthy" or "degraded"
	Uptime    string     `json:"uptime"`
	Version   string     `json:"version"`
	PoolStats *PoolStats `json:"pool_stats,omitempty"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
