package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/use-agent/webagent/models"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string // default "gemini-2.5-flash"
}

// GeminiProvider calls Gemini through the Google GenAI SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, models.NewAgentError(models.ErrCodeConfigMissing, "GenAI API key is required", nil)
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	system, contents := toGenAIContents(messages)

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, classifyGenAIError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, models.NewAgentError(models.ErrCodeLLMFailure, "Gemini returned empty content", nil)
	}

	out := &Completion{Text: text, Model: p.model}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &models.LLMUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// toGenAIContents splits system messages into one system instruction and
// maps the rest to user/model turns.
func toGenAIContents(messages []Message) (*genai.Content, []*genai.Content) {
	var sys []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			sys = append(sys, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(sys) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(sys, "\n\n"), genai.RoleUser), contents
}

// classifyGenAIError maps SDK errors to the same codes as the HTTP provider.
func classifyGenAIError(err error) *models.AgentError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Message)
	}
	return models.NewAgentError(models.ErrCodeLLMFailure, "Gemini request failed", err)
}
