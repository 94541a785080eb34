package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/models"
)

func TestOpenAIComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"gpt-4o-mini","choices":[{"message":{"content":"  1. Facts  "}}],
			"usage":{"prompt_tokens":10,"completion_tokens":4,"total_tokens":14}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, srv.Client())
	c, err := p.Complete(context.Background(), []Message{System("be brief"), User("hello")}, Options{MaxTokens: 100, Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "1. Facts", c.Text)
	assert.Equal(t, &models.LLMUsage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14}, c.Usage)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)
	assert.Equal(t, []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hello"}}, got.Messages)
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, models.ErrCodeLLMAuthFailure},
		{"forbidden", http.StatusForbidden, `{}`, models.ErrCodeLLMAuthFailure},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, models.ErrCodeRateLimited},
		{"server", http.StatusInternalServerError, `oops`, models.ErrCodeLLMFailure},
		{"no choices", http.StatusOK, `{"choices":[]}`, models.ErrCodeLLMFailure},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, models.ErrCodeLLMFailure},
		{"garbage", http.StatusOK, `not json`, models.ErrCodeLLMFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
			_, err := p.Complete(context.Background(), []Message{User("x")}, Options{})
			require.Error(t, err)
			assert.Equal(t, tt.code, models.CodeOf(err))
		})
	}
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), config.LLMConfig{Provider: "openai"}, nil)
	assert.True(t, models.IsCode(err, models.ErrCodeConfigMissing))

	_, err = NewProvider(context.Background(), config.LLMConfig{Provider: "cohere", APIKey: "k"}, nil)
	assert.True(t, models.IsCode(err, models.ErrCodeConfigMissing))

	p, err := NewProvider(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	op := p.(*OpenAIProvider)
	assert.Equal(t, defaultOpenAIBaseURL, op.baseURL)
}

func TestParseURLList(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{"plain", `["https://a.example/x", "http://b.example"]`, []string{"https://a.example/x", "http://b.example"}, false},
		{"fenced", "```json\n[\"https://a.example\"]\n```", []string{"https://a.example"}, false},
		{"bare fence", "```\n[\"https://a.example\"]\n```", []string{"https://a.example"}, false},
		{"drops invalid", `["ftp://x", "not a url", "/relative", "https://ok.example"]`, []string{"https://ok.example"}, false},
		{"empty array", `[]`, []string{}, false},
		{"prose", `Here are some URLs: https://a.example`, nil, true},
		{"object", `{"urls":["https://a.example"]}`, nil, true},
		{"numbers", `[1, 2]`, nil, true},
		{"trailing", `["https://a.example"] and more`, nil, true},
		{"two arrays", `["https://a.example"]["https://b.example"]`, nil, true},
		{"null", `null`, nil, true},
		{"empty", ``, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURLList(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, models.ErrCodeParseFailed, models.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToGenAIContents(t *testing.T) {
	sys, contents := toGenAIContents([]Message{System("a"), User("q"), {Role: RoleAssistant, Content: "r"}, System("b")})
	require.NotNil(t, sys)
	require.Len(t, sys.Parts, 1)
	assert.Equal(t, "a\n\nb", sys.Parts[0].Text)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)

	sys, _ = toGenAIContents([]Message{User("q")})
	assert.Nil(t, sys)
}
