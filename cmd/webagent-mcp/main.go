// Command webagent-mcp exposes the webagent HTTP API as MCP tools over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the API error envelope.
type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// taskResponse mirrors the /task and /analyze success envelope. Screenshot
// bytes are dropped; MCP clients get the sources instead.
type taskResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Task        string   `json:"task"`
		Query       string   `json:"query"`
		Broadened   bool     `json:"broadened"`
		Analysis    string   `json:"analysis"`
		Sources     []string `json:"sources"`
		Screenshots []struct {
			Label  string `json:"label"`
			Source string `json:"source"`
		} `json:"screenshots"`
		Timing struct {
			TotalMs int64 `json:"total_ms"`
		} `json:"timing"`
	} `json:"data"`
}

// promptsResponse mirrors the GET /prompts response.
type promptsResponse struct {
	Success bool `json:"success"`
	Prompts []struct {
		Prompt    string    `json:"prompt"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"prompts"`
}

func main() {
	apiURL := os.Getenv("WEBAGENT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("WEBAGENT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "WEBAGENT_API_KEY is required")
		os.Exit(1)
	}

	if err := server.ServeStdio(newServer(apiURL, apiKey)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"webagent",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	researchTool := mcp.NewTool("research_task",
		mcp.WithDescription("Answer a natural-language task from live web pages. Searches the web, reads the top sources and returns one synthesized answer with the source URLs."),
		mcp.WithString("task",
			mcp.Required(),
			mcp.Description("What to find out, e.g. 'best ramen in Sapporo' (3-500 characters)"),
		),
	)
	s.AddTool(researchTool, handleResearchTask(apiURL, apiKey))

	analyzeTool := mcp.NewTool("analyze_url",
		mcp.WithDescription("Read a single web page and answer a task from its content only."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The page to read"),
		),
		mcp.WithString("task",
			mcp.Required(),
			mcp.Description("What to look for on the page"),
		),
	)
	s.AddTool(analyzeTool, handleAnalyzeURL(apiURL, apiKey))

	promptsTool := mcp.NewTool("recent_prompts",
		mcp.WithDescription("List the most recent tasks submitted to webagent, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Number of entries (default: 20, max: 100)"),
		),
	)
	s.AddTool(promptsTool, handleRecentPrompts(apiURL, apiKey))

	return s
}

// apiPost sends a POST request to the webagent API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, req, apiKey)
}

// apiGet sends a GET request to the webagent API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return do(client, req, apiKey)
}

func do(client *http.Client, req *http.Request, apiKey string) ([]byte, error) {
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("[%s] %s", e.Code, e.Error)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return body, nil
}

func handleResearchTask(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := request.RequireString("task")
		if err != nil {
			return mcp.NewToolResultError("task is required"), nil
		}

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/task", map[string]any{"task": task})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return formatTask(body)
	}
}

func handleAnalyzeURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		task, err := request.RequireString("task")
		if err != nil {
			return mcp.NewToolResultError("task is required"), nil
		}

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/analyze", map[string]any{"url": pageURL, "task": task})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return formatTask(body)
	}
}

func handleRecentPrompts(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)

		body, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/prompts?limit="+strconv.Itoa(limit))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp promptsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if len(resp.Prompts) == 0 {
			return mcp.NewToolResultText("No prompts recorded."), nil
		}

		var sb strings.Builder
		for i, p := range resp.Prompts {
			fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, p.Timestamp.Format(time.RFC3339), p.Prompt)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// formatTask renders a task response as plain text: the answer, then
// sources and screenshot captions.
func formatTask(body []byte) (*mcp.CallToolResult, error) {
	var resp taskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
	}
	if !resp.Success || resp.Data == nil {
		return mcp.NewToolResultError("task failed"), nil
	}
	d := resp.Data

	var sb strings.Builder
	if d.Broadened {
		fmt.Fprintf(&sb, "(No direct match; answered from the broader query %q.)\n\n", d.Query)
	}
	sb.WriteString(d.Analysis)

	if len(d.Sources) > 0 {
		sb.WriteString("\n\n---\nSources:\n")
		for i, s := range d.Sources {
			fmt.Fprintf(&sb, "[%d] %s\n", i+1, s)
		}
	}
	if len(d.Screenshots) > 0 {
		sb.WriteString("\nScreenshots taken:\n")
		for _, s := range d.Screenshots {
			fmt.Fprintf(&sb, "- %s (%s)\n", s.Label, s.Source)
		}
	}
	fmt.Fprintf(&sb, "\nTook %dms", d.Timing.TotalMs)

	return mcp.NewToolResultText(sb.String()), nil
}
