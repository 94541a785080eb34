package engine

import (
	"context"
	"fmt"
)

// Renderer loads a page in a real browser and returns its rendered HTML.
// scraper.Scraper implements it.
type Renderer interface {
	Render(ctx context.Context, url string, headers map[string]string) (*FetchResult, error)
}

// BrowserEngine is the heavy engine that renders pages with JavaScript.
type BrowserEngine struct {
	renderer Renderer
}

// NewBrowserEngine wraps r as an Engine.
func NewBrowserEngine(r Renderer) *BrowserEngine {
	return &BrowserEngine{renderer: r}
}

func (e *BrowserEngine) Name() string { return "rod" }

func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.renderer == nil {
		return nil, fmt.Errorf("rod: renderer not configured")
	}

	result, err := e.renderer.Render(ctx, req.URL, req.Headers)
	if err != nil {
		return nil, fmt.Errorf("rod: %w", err)
	}
	// The browser reports 0 when the status could not be read.
	if result.StatusCode >= 300 {
		return nil, &StatusError{URL: req.URL, StatusCode: result.StatusCode}
	}

	result.EngineName = e.Name()
	return result, nil
}
