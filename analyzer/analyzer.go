// Package analyzer fetches one candidate URL and turns it into a SiteAnalysis.
package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/webagent/cleaner"
	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/engine"
	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/retry"
	"github.com/use-agent/webagent/screenshot"
)

// Fetcher retrieves a page. *engine.Dispatcher satisfies it.
type Fetcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// Options configure an Analyzer.
type Options struct {
	FetchTimeout      time.Duration
	ScreenshotTimeout time.Duration
	Screenshot        screenshot.Options
	ScreenshotRetry   retry.Policy
}

// OptionsFromConfig derives Options from the analyzer and screenshot sections.
func OptionsFromConfig(a config.AnalyzerConfig, s config.ScreenshotConfig) Options {
	return Options{
		FetchTimeout:      a.FetchTimeout,
		ScreenshotTimeout: s.Timeout,
		Screenshot: screenshot.Options{
			Width:   s.Width,
			Height:  s.Height,
			Format:  "jpeg",
			Quality: 80,
		},
		ScreenshotRetry: retry.Exponential(2, time.Second),
	}
}

// Analyzer is safe for concurrent use; each call owns its own state.
type Analyzer struct {
	fetcher Fetcher
	cleaner *cleaner.Cleaner
	shots   screenshot.Service
	opts    Options
}

// New creates an Analyzer. A nil shots service disables screenshots.
func New(fetcher Fetcher, c *cleaner.Cleaner, shots screenshot.Service, opts Options) *Analyzer {
	if shots == nil {
		shots = screenshot.None{}
	}
	return &Analyzer{fetcher: fetcher, cleaner: c, shots: shots, opts: opts}
}

// Analyze fetches pageURL and extracts its content. It returns nil when the
// page cannot be fetched; the cause is logged, never returned. A screenshot
// failure only leaves Screenshots empty.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string, wantScreenshot bool) *models.SiteAnalysis {
	start := time.Now()

	res, err := a.fetcher.Dispatch(ctx, &engine.FetchRequest{
		URL:     pageURL,
		Timeout: a.opts.FetchTimeout,
	})
	if err != nil {
		slog.Warn("site fetch failed", "url", pageURL, "error", err)
		return nil
	}

	src := res.FinalURL
	if src == "" {
		src = pageURL
	}
	content := a.cleaner.ExtractFrom(res.HTML, src)
	if content.Title == "" {
		content.Title = res.Title
	}

	out := &models.SiteAnalysis{
		URL:         pageURL,
		Content:     content,
		Screenshots: []models.Screenshot{},
		FetchedWith: res.EngineName,
	}

	if wantScreenshot {
		if shot, ok := a.screenshot(ctx, pageURL, content.Title); ok {
			out.Screenshots = append(out.Screenshots, shot)
		}
	}

	slog.Debug("site analyzed",
		"url", pageURL,
		"engine", res.EngineName,
		"paragraphs", len(content.Paragraphs),
		"screenshots", len(out.Screenshots),
		"elapsed", time.Since(start),
	)
	return out
}

func (a *Analyzer) screenshot(ctx context.Context, pageURL, title string) (models.Screenshot, bool) {
	if a.opts.ScreenshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.ScreenshotTimeout)
		defer cancel()
	}

	img, err := screenshot.Take(ctx, a.shots, pageURL, a.opts.Screenshot, a.opts.ScreenshotRetry)
	if err != nil {
		if !errors.Is(err, screenshot.ErrDisabled) {
			slog.Warn("screenshot failed", "url", pageURL, "error", err)
		}
		return models.Screenshot{}, false
	}

	label := title
	if label == "" {
		if u, err := url.Parse(pageURL); err == nil {
			label = u.Host
		}
	}
	return models.Screenshot{Label: label, Image: img, Source: pageURL}, true
}
