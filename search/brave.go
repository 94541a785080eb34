// Package search is a client for the Brave web search API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/use-agent/webagent/config"
)

// ErrNoAPIKey is returned when the client has no subscription token.
var ErrNoAPIKey = errors.New("search: API key not configured")

// Query is one web search.
type Query struct {
	Text string
	// Count is the number of results wanted; 0 uses the client default.
	Count int
	// Freshness is a Brave freshness filter ("pd", "pw", "pm", "py"); empty means none.
	Freshness string
}

// Result is one web hit.
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// StatusError is a non-200 answer from the search API.
type StatusError struct {
	StatusCode int
	Body       string
	After      time.Duration // from Retry-After, if any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search: API returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfter returns the server-requested wait.
func (e *StatusError) RetryAfter() time.Duration { return e.After }

// braveResponse is the subset of the Brave response we read.
type braveResponse struct {
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

// BraveClient queries the Brave web search API. It performs a single request
// per call; callers own the retry policy.
type BraveClient struct {
	endpoint     string
	apiKey       string
	defaultCount int
	client       *http.Client
}

// NewBraveClient builds a client from cfg. A nil client gets cfg.Timeout.
func NewBraveClient(cfg config.SearchConfig, client *http.Client) *BraveClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	count := cfg.Count
	if count <= 0 {
		count = 10
	}
	return &BraveClient{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		defaultCount: count,
		client:       client,
	}
}

// Configured reports whether the client has credentials.
func (c *BraveClient) Configured() bool { return c.apiKey != "" }

// Search runs q and returns the web results in rank order.
func (c *BraveClient) Search(ctx context.Context, q Query) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	count := q.Count
	if count <= 0 {
		count = c.defaultCount
	}
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("count", strconv.Itoa(count))
	if q.Freshness != "" {
		params.Set("freshness", q.Freshness)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 && secs <= 120 {
			serr.After = time.Duration(secs) * time.Second
		}
		return nil, serr
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}
	return br.Web.Results, nil
}
