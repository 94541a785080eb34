package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/task", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["task"] == "nothing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"no information found","code":"NO_INFORMATION_FOUND"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"task":"` + req["task"] + `","analysis":"1. Ramen Shingen","sources":["https://a.example"],"screenshots":[{"label":"A","source":"https://a.example","image":"aGk="}],"timing":{"total_ms":42}}}`))
	})
	mux.HandleFunc("/api/v1/prompts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"success":true,"prompts":[{"prompt":"best ramen","timestamp":"2026-01-02T03:04:05Z"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestResearchTask(t *testing.T) {
	srv := newAPI(t)
	h := handleResearchTask(srv.URL, "k")

	res, err := h(context.Background(), call(map[string]any{"task": "best ramen"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := textOf(t, res)
	assert.Contains(t, text, "1. Ramen Shingen")
	assert.Contains(t, text, "[1] https://a.example")
	assert.Contains(t, text, "- A (https://a.example)")
	assert.Contains(t, text, "42ms")
}

func TestResearchTaskErrors(t *testing.T) {
	srv := newAPI(t)
	h := handleResearchTask(srv.URL, "k")

	res, err := h(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h(context.Background(), call(map[string]any{"task": "nothing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "NO_INFORMATION_FOUND")
}

func TestRecentPrompts(t *testing.T) {
	srv := newAPI(t)
	h := handleRecentPrompts(srv.URL, "k")

	res, err := h(context.Background(), call(map[string]any{"limit": 5}))
	require.NoError(t, err)
	assert.Equal(t, "1. [2026-01-02T03:04:05Z] best ramen\n", textOf(t, res))
}
