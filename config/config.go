package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
	Finder     FinderConfig     `yaml:"finder"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Engine     EngineConfig     `yaml:"engine"`
	Browser    BrowserConfig    `yaml:"browser"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	Agent      AgentConfig      `yaml:"agent"`
	PromptLog  PromptLogConfig  `yaml:"prompt_log"`
	Webhook    WebhookConfig    `yaml:"webhook"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 `yaml:"rps"` // default: 2

	// Burst is the maximum burst size per API key.
	Burst int `yaml:"burst"` // default: 5
}

// CacheConfig controls the task result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int `yaml:"max_entries"` // default: 500

	// TTL is how long a task result stays fresh. 0 disables caching.
	TTL time.Duration `yaml:"ttl"` // default: 10m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Provider string `yaml:"provider"` // default: "openai"

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"` // default: "https://api.openai.com/v1"

	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // default: "gpt-4o-mini"

	// MaxTokens bounds the summarization completion.
	MaxTokens int `yaml:"max_tokens"` // default: 1000

	Temperature float64       `yaml:"temperature"` // default: 0.7
	Timeout     time.Duration `yaml:"timeout"`     // default: 60s
}

// SearchConfig controls the web search client.
type SearchConfig struct {
	// Endpoint is the Brave web search URL.
	Endpoint string `yaml:"endpoint"` // default: "https://api.search.brave.com/res/v1/web/search"

	APIKey string `yaml:"api_key"`

	// Count is the number of results requested per query.
	Count int `yaml:"count"` // default: 10

	// Freshness is the Brave freshness filter ("pd", "pw", "pm", "py"); empty means none.
	Freshness string `yaml:"freshness"` // default: "pm"

	Timeout time.Duration `yaml:"timeout"` // default: 10s

	// RetryAttempts is the total number of attempts, including the first.
	RetryAttempts int `yaml:"retry_attempts"` // default: 3

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"` // default: 1s
}

// FinderConfig controls source discovery.
type FinderConfig struct {
	// MaxSources caps the number of candidate URLs per task.
	MaxSources int `yaml:"max_sources"` // default: 5

	// RewriteQuery asks the LLM to turn the task into a search query.
	RewriteQuery bool `yaml:"rewrite_query"` // default: true

	// LLMSuggest asks the LLM for URLs when search returns nothing.
	LLMSuggest bool `yaml:"llm_suggest"` // default: false

	// FallbackSources is used verbatim when nothing else was found.
	FallbackSources []string `yaml:"fallback_sources"`
}

// AnalyzerConfig controls per-site analysis.
type AnalyzerConfig struct {
	// FetchTimeout bounds the whole fetch of one site.
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // default: 15s
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration `yaml:"escalation_delays"` // default: [0s, 3s]

	// HTTPTimeout is the deadline for the pure HTTP engine.
	HTTPTimeout time.Duration `yaml:"http_timeout"` // default: 10s

	// MemoryTTL is how long a domain's winning engine is remembered.
	MemoryTTL time.Duration `yaml:"memory_ttl"` // default: 1h
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Enabled launches a headless browser for rendering and screenshots.
	Enabled bool `yaml:"enabled"` // default: true

	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int `yaml:"max_pages"` // default: 5

	// Proxy is the proxy URL for browser traffic.
	Proxy string `yaml:"proxy"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin"`

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"` // default: 12s

	// BlockedResourceTypes lists resource types to block while rendering for text.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string `yaml:"blocked_resource_types"`
}

// ScreenshotConfig controls page screenshots.
type ScreenshotConfig struct {
	// Provider is "browser" (local rod), "remote" (HTTP API) or "none".
	Provider string `yaml:"provider"` // default: "browser"

	// Endpoint is the remote rendering API, called as Endpoint?url=<page>.
	Endpoint string `yaml:"endpoint"`

	APIKey string `yaml:"api_key"`

	// Timeout bounds both calls of one screenshot, retries included.
	Timeout time.Duration `yaml:"timeout"` // default: 20s

	// MaxSites is how many leading candidates request a screenshot.
	MaxSites int `yaml:"max_sites"` // default: 2

	Width  int `yaml:"width"`  // default: 1280
	Height int `yaml:"height"` // default: 800
}

// AgentConfig controls the aggregation pipeline.
type AgentConfig struct {
	// PromptBudget caps the assembled summarization prompt, in characters.
	PromptBudget int `yaml:"prompt_budget"` // default: 12000

	// EntryBudget caps each site's block within the prompt, in characters.
	EntryBudget int `yaml:"entry_budget"` // default: 4000

	// MaxParallel bounds concurrent site analyses. 0 means unbounded.
	MaxParallel int `yaml:"max_parallel"` // default: 0

	// BroadenSuffix is appended to the first two task words on retry.
	BroadenSuffix string `yaml:"broaden_suffix"` // default: "latest information"

	// DedupeDistance is the SimHash distance at or below which pages are
	// considered duplicates. Negative disables deduplication.
	DedupeDistance int `yaml:"dedupe_distance"` // default: 3
}

// PromptLogConfig controls prompt persistence.
type PromptLogConfig struct {
	// Enabled toggles the prompt log.
	Enabled bool `yaml:"enabled"` // default: true

	// DSN is a postgres:// URL, a sqlite file path, or "memory".
	// default: $XDG_DATA_HOME/webagent/prompts.db
	DSN string `yaml:"dsn"`
}

// WebhookConfig controls completion notifications.
type WebhookConfig struct {
	// URL receives a task.completed event. Empty disables webhooks.
	URL string `yaml:"url"`

	// Secret signs payloads with HMAC-SHA256.
	Secret string `yaml:"secret"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "release"},
		Auth:      AuthConfig{Enabled: true},
		RateLimit: RateLimitConfig{RequestsPerSecond: 2, Burst: 5},
		Cache:     CacheConfig{MaxEntries: 500, TTL: 10 * time.Minute},
		Log:       LogConfig{Level: "info", Format: "json"},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   1000,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Search: SearchConfig{
			Endpoint:       "https://api.search.brave.com/res/v1/web/search",
			Count:          10,
			Freshness:      "pm",
			Timeout:        10 * time.Second,
			RetryAttempts:  3,
			RetryBaseDelay: time.Second,
		},
		Finder:   FinderConfig{MaxSources: 5, RewriteQuery: true},
		Analyzer: AnalyzerConfig{FetchTimeout: 15 * time.Second},
		Engine: EngineConfig{
			EscalationDelays: []time.Duration{0, 3 * time.Second},
			HTTPTimeout:      10 * time.Second,
			MemoryTTL:        time.Hour,
		},
		Browser: BrowserConfig{
			Enabled:              true,
			Headless:             true,
			MaxPages:             5,
			NavigationTimeout:    12 * time.Second,
			BlockedResourceTypes: []string{"Image", "Font", "Media"},
		},
		Screenshot: ScreenshotConfig{
			Provider: "browser",
			Timeout:  20 * time.Second,
			MaxSites: 2,
			Width:    1280,
			Height:   800,
		},
		Agent: AgentConfig{
			PromptBudget:   12000,
			EntryBudget:    4000,
			BroadenSuffix:  "latest information",
			DedupeDistance: 3,
		},
		PromptLog: PromptLogConfig{
			Enabled: true,
			DSN:     filepath.Join(xdg.DataHome, "webagent", "prompts.db"),
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("WEBAGENT_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides every field that has a non-empty environment variable.
func (c *Config) applyEnv() {
	c.Server.Host = envOr("WEBAGENT_HOST", c.Server.Host)
	c.Server.Port = envIntOr("WEBAGENT_PORT", c.Server.Port)
	c.Server.Mode = envOr("WEBAGENT_MODE", c.Server.Mode)

	c.Auth.Enabled = envBoolOr("WEBAGENT_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("WEBAGENT_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("WEBAGENT_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("WEBAGENT_RATE_BURST", c.RateLimit.Burst)

	c.Cache.MaxEntries = envIntOr("CACHE_MAX_ENTRIES", c.Cache.MaxEntries)
	c.Cache.TTL = envDurationOr("CACHE_TTL", c.Cache.TTL)

	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("LOG_FORMAT", c.Log.Format)

	c.LLM.Provider = envOr("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.BaseURL = envOr("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = envOr("LLM_API_KEY", envOr("OPENAI_API_KEY", c.LLM.APIKey))
	c.LLM.Model = envOr("LLM_MODEL", c.LLM.Model)
	c.LLM.MaxTokens = envIntOr("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = envFloatOr("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = envDurationOr("LLM_TIMEOUT", c.LLM.Timeout)

	c.Search.Endpoint = envOr("SEARCH_ENDPOINT", c.Search.Endpoint)
	c.Search.APIKey = envOr("SEARCH_API_KEY", envOr("BRAVE_API_KEY", c.Search.APIKey))
	c.Search.Count = envIntOr("SEARCH_COUNT", c.Search.Count)
	c.Search.Freshness = envOr("SEARCH_FRESHNESS", c.Search.Freshness)
	c.Search.Timeout = envDurationOr("SEARCH_TIMEOUT", c.Search.Timeout)
	c.Search.RetryAttempts = envIntOr("SEARCH_RETRY_ATTEMPTS", c.Search.RetryAttempts)
	c.Search.RetryBaseDelay = envDurationOr("SEARCH_RETRY_BASE_DELAY", c.Search.RetryBaseDelay)

	c.Finder.MaxSources = envIntOr("FINDER_MAX_SOURCES", c.Finder.MaxSources)
	c.Finder.RewriteQuery = envBoolOr("FINDER_REWRITE_QUERY", c.Finder.RewriteQuery)
	c.Finder.LLMSuggest = envBoolOr("FINDER_LLM_SUGGEST", c.Finder.LLMSuggest)
	c.Finder.FallbackSources = envSliceOr("FINDER_FALLBACK_SOURCES", c.Finder.FallbackSources)

	c.Analyzer.FetchTimeout = envDurationOr("ANALYZER_FETCH_TIMEOUT", c.Analyzer.FetchTimeout)

	c.Engine.EscalationDelays = envDurationSliceOr("ENGINE_ESCALATION_DELAYS", c.Engine.EscalationDelays)
	c.Engine.HTTPTimeout = envDurationOr("ENGINE_HTTP_TIMEOUT", c.Engine.HTTPTimeout)
	c.Engine.MemoryTTL = envDurationOr("ENGINE_MEMORY_TTL", c.Engine.MemoryTTL)

	c.Browser.Enabled = envBoolOr("BROWSER_ENABLED", c.Browser.Enabled)
	c.Browser.Headless = envBoolOr("BROWSER_HEADLESS", c.Browser.Headless)
	c.Browser.MaxPages = envIntOr("BROWSER_MAX_PAGES", c.Browser.MaxPages)
	c.Browser.Proxy = envOr("BROWSER_PROXY", c.Browser.Proxy)
	c.Browser.NoSandbox = envBoolOr("BROWSER_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.NavigationTimeout = envDurationOr("BROWSER_NAV_TIMEOUT", c.Browser.NavigationTimeout)
	c.Browser.BlockedResourceTypes = envSliceOr("BROWSER_BLOCKED_RESOURCES", c.Browser.BlockedResourceTypes)

	c.Screenshot.Provider = envOr("SCREENSHOT_PROVIDER", c.Screenshot.Provider)
	c.Screenshot.Endpoint = envOr("SCREENSHOT_ENDPOINT", c.Screenshot.Endpoint)
	c.Screenshot.APIKey = envOr("SCREENSHOT_API_KEY", c.Screenshot.APIKey)
	c.Screenshot.Timeout = envDurationOr("SCREENSHOT_TIMEOUT", c.Screenshot.Timeout)
	c.Screenshot.MaxSites = envIntOr("SCREENSHOT_MAX_SITES", c.Screenshot.MaxSites)
	c.Screenshot.Width = envIntOr("SCREENSHOT_WIDTH", c.Screenshot.Width)
	c.Screenshot.Height = envIntOr("SCREENSHOT_HEIGHT", c.Screenshot.Height)

	c.Agent.PromptBudget = envIntOr("AGENT_PROMPT_BUDGET", c.Agent.PromptBudget)
	c.Agent.EntryBudget = envIntOr("AGENT_ENTRY_BUDGET", c.Agent.EntryBudget)
	c.Agent.MaxParallel = envIntOr("AGENT_MAX_PARALLEL", c.Agent.MaxParallel)
	c.Agent.BroadenSuffix = envOr("AGENT_BROADEN_SUFFIX", c.Agent.BroadenSuffix)
	c.Agent.DedupeDistance = envIntOr("AGENT_DEDUPE_DISTANCE", c.Agent.DedupeDistance)

	c.PromptLog.Enabled = envBoolOr("PROMPT_LOG_ENABLED", c.PromptLog.Enabled)
	c.PromptLog.DSN = envOr("PROMPT_LOG_DSN", c.PromptLog.DSN)

	c.Webhook.URL = envOr("WEBHOOK_URL", c.Webhook.URL)
	c.Webhook.Secret = envOr("WEBHOOK_SECRET", c.Webhook.Secret)
}

// Validate rejects configurations the pipeline cannot run with.
// Missing credentials are not checked here; they surface per request.
func (c *Config) Validate() error {
	var errs []error
	if c.Agent.PromptBudget <= 0 {
		errs = append(errs, errors.New("agent.prompt_budget must be positive"))
	}
	if c.Agent.EntryBudget <= 0 {
		errs = append(errs, errors.New("agent.entry_budget must be positive"))
	}
	if c.Finder.MaxSources <= 0 {
		errs = append(errs, errors.New("finder.max_sources must be positive"))
	}
	if c.Search.RetryAttempts < 1 {
		errs = append(errs, errors.New("search.retry_attempts must be at least 1"))
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	switch c.Screenshot.Provider {
	case "browser", "remote", "none":
	default:
		errs = append(errs, fmt.Errorf("screenshot.provider %q is not supported", c.Screenshot.Provider))
	}
	return errors.Join(errs...)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
