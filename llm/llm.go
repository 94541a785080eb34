// Package llm wraps chat-completion providers behind one interface.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/models"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are per-call generation settings. Zero values use provider defaults.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Completion is a provider answer.
type Completion struct {
	Text  string
	Model string
	Usage *models.LLMUsage
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)
}

// NewProvider builds the provider named by cfg.Provider. A missing API key is
// reported as CONFIGURATION_MISSING.
func NewProvider(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, models.NewAgentError(models.ErrCodeConfigMissing,
			fmt.Sprintf("no API key configured for LLM provider %q", cfg.Provider), nil)
	}

	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, httpClient), nil
	case "gemini":
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})
	default:
		return nil, models.NewAgentError(models.ErrCodeConfigMissing,
			fmt.Sprintf("unsupported LLM provider %q", cfg.Provider), nil)
	}
}

// System and User are shorthands for building message lists.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }
