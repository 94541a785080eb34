package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/use-agent/webagent/models"
)

// ParseURLList decodes an LLM answer that must be a JSON array of URL
// strings. A single surrounding markdown code fence is tolerated; anything
// else that is not exactly one JSON array of strings is a PARSE_FAILED error.
// Entries that are not absolute http(s) URLs are dropped.
func ParseURLList(text string) ([]string, error) {
	raw := stripFence(strings.TrimSpace(text))

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	var items []string
	if err := dec.Decode(&items); err != nil {
		return nil, models.NewAgentError(models.ErrCodeParseFailed, "LLM answer is not a JSON array of strings", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, models.NewAgentError(models.ErrCodeParseFailed, "trailing data after JSON array", err)
	}
	if items == nil {
		return nil, models.NewAgentError(models.ErrCodeParseFailed, "LLM answer is null", nil)
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if IsWebURL(s) {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out, nil
}

// IsWebURL reports whether s parses as an absolute http or https URL with a host.
func IsWebURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// Drop the info string ("json").
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		if info := strings.TrimSpace(inner[:nl]); info == "" || !strings.ContainsAny(info, "[{\"") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
