package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/webagent/engine"
	"github.com/use-agent/webagent/models"
	"github.com/ysmood/gson"
)

// ScreenshotOptions controls a capture.
type ScreenshotOptions struct {
	Width    int  // viewport width; default 1280
	Height   int  // viewport height; default 800
	FullPage bool // capture beyond the viewport
	// Format is "png" or "jpeg"; default "png".
	Format  string
	Quality int // jpeg only, 0-100
}

// Render loads targetURL with JavaScript enabled and returns the rendered
// HTML. Heavy resources listed in the browser config are blocked.
func (s *Scraper) Render(ctx context.Context, targetURL string, headers map[string]string) (*engine.FetchResult, error) {
	p, release, err := s.open(ctx, targetURL, headers, s.cfg.BlockedResourceTypes)
	if err != nil {
		return nil, err
	}
	defer release()

	// ── Status code (best-effort) ────────────────────────────────────
	var statusCode int
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = targetURL
	}

	return &engine.FetchResult{
		HTML:        rawHTML,
		Title:       evalStringOrEmpty(p, `() => document.title`),
		StatusCode:  statusCode,
		ContentType: evalStringOrEmpty(p, `() => document.contentType`),
		FinalURL:    finalURL,
	}, nil
}

// Screenshot renders targetURL and returns the encoded image.
func (s *Scraper) Screenshot(ctx context.Context, targetURL string, opts ScreenshotOptions) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}

	// Images and stylesheets are needed for a faithful capture.
	p, release, err := s.open(ctx, targetURL, nil, []string{"Media"})
	if err != nil {
		return nil, err
	}
	defer release()

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Debug("set viewport failed", "url", targetURL, "error", err)
	}

	removeOverlays(p)

	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	if opts.Format == "jpeg" {
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		if opts.Quality > 0 {
			req.Quality = gson.Int(opts.Quality)
		}
	}

	img, err := p.Screenshot(opts.FullPage, req)
	if err != nil {
		return nil, categorizeError(err, "screenshot capture failed")
	}
	return img, nil
}

// open borrows a page from the pool, installs stealth, headers and resource
// blocking, then navigates and waits for the DOM to settle. The returned page
// is bound to ctx. release must always be called.
//
// Stealth JS and hijacking only apply to navigations that start after they
// are installed, so the order here matters.
func (s *Scraper) open(ctx context.Context, targetURL string, headers map[string]string, blocked []string) (*rod.Page, func(), error) {
	s.activePages.Add(1)

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		s.activePages.Add(-1)
		return nil, nil, models.NewAgentError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}

	var router *rod.HijackRouter
	release := func() {
		if router != nil {
			_ = router.Stop()
		}
		// The unbound page still works after ctx expires.
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
		s.activePages.Add(-1)
	}

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	extraHeaders := make(map[string]string, len(headers)+1)
	if u, parseErr := url.Parse(targetURL); parseErr == nil {
		extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	for k, v := range headers {
		extraHeaders[k] = v
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extraHeaders)}.Call(page)

	router = setupHijack(page, blocked, true)

	p := page.Context(ctx)
	if err := p.Navigate(targetURL); err != nil {
		release()
		return nil, nil, categorizeError(err, "navigation to target URL failed")
	}
	if err := p.Timeout(s.navTimeout()).WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	return p, release, nil
}

func (s *Scraper) navTimeout() time.Duration {
	if s.cfg.NavigationTimeout > 0 {
		return s.cfg.NavigationTimeout
	}
	return 12 * time.Second
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders
// (map[string]gson.JSON).
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// removeOverlays removes fixed/sticky elements with a high z-index, which
// are typically cookie banners and popups covering the page.
func removeOverlays(p *rod.Page) {
	const js = `() => {
		for (const el of document.querySelectorAll('*')) {
			const style = window.getComputedStyle(el);
			if (style.position === 'fixed' || style.position === 'sticky') {
				const z = parseInt(style.zIndex, 10);
				if (z >= 900) el.remove();
			}
		}
		const selectors = [
			'[class*="cookie"]', '[id*="cookie"]', '[class*="consent"]', '[id*="consent"]',
			'[class*="gdpr"]', '[id*="gdpr"]', '[class*="popup"]', '[id*="popup"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const pos = window.getComputedStyle(el).position;
				if (pos === 'fixed' || pos === 'sticky' || pos === 'absolute') el.remove();
			});
		}
		document.documentElement.style.overflow = '';
		if (document.body) document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}

// categorizeError wraps rod errors into AgentErrors.
func categorizeError(err error, msg string) *models.AgentError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewAgentError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewAgentError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewAgentError(models.ErrCodeFetchFailed, msg, err)
	}
}
