package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/use-agent/webagent/agent"
	"github.com/use-agent/webagent/analyzer"
	"github.com/use-agent/webagent/api"
	"github.com/use-agent/webagent/api/handler"
	"github.com/use-agent/webagent/cache"
	"github.com/use-agent/webagent/cleaner"
	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/engine"
	"github.com/use-agent/webagent/finder"
	"github.com/use-agent/webagent/llm"
	"github.com/use-agent/webagent/promptlog"
	"github.com/use-agent/webagent/screenshot"
	"github.com/use-agent/webagent/scraper"
	"github.com/use-agent/webagent/search"
	"github.com/use-agent/webagent/webhook"
)

// app holds every long-lived component built from one Config.
type app struct {
	cfg      *config.Config
	scraper  *scraper.Scraper
	agent    *agent.Agent
	cache    *cache.Cache
	prompts  *promptlog.Handle
	notifier *webhook.Notifier
}

// newApp wires the pipeline. Missing credentials do not fail startup: the
// agent reports CONFIGURATION_MISSING per request instead. A browser that
// fails to launch degrades to HTTP-only fetching without screenshots.
func newApp(ctx context.Context, cfg *config.Config) *app {
	a := &app{cfg: cfg}

	// ── 1. Browser (optional) ───────────────────────────────────────
	if cfg.Browser.Enabled {
		sc, err := scraper.NewScraper(cfg.Browser)
		if err != nil {
			slog.Warn("browser unavailable, continuing without rendering", "error", err)
		} else {
			a.scraper = sc
		}
	}

	// ── 2. Fetch engines ────────────────────────────────────────────
	engines := []engine.Engine{engine.NewHTTPEngine(engine.HTTPOptions{
		RejectShells: a.scraper != nil,
		Proxy:        cfg.Browser.Proxy,
		Timeout:      cfg.Engine.HTTPTimeout,
	})}
	var renderer screenshot.Renderer
	if a.scraper != nil {
		engines = append(engines, engine.NewBrowserEngine(a.scraper))
		renderer = a.scraper
	}
	memory := engine.NewDomainMemory(cfg.Engine.MemoryTTL)
	dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)
	slog.Info("fetch dispatcher ready", "engines", dispatcher.Engines(), "delays", cfg.Engine.EscalationDelays)

	// ── 3. External services ────────────────────────────────────────
	shots := screenshot.New(cfg.Screenshot, renderer, &http.Client{Timeout: cfg.Screenshot.Timeout})
	brave := search.NewBraveClient(cfg.Search, nil)

	provider, err := llm.NewProvider(ctx, cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
	if err != nil {
		slog.Warn("LLM provider unavailable", "provider", cfg.LLM.Provider, "error", err)
		provider = nil
	}

	// ── 4. Pipeline ─────────────────────────────────────────────────
	f := finder.New(brave, provider, cfg.Finder, cfg.Search)
	an := analyzer.New(dispatcher, cleaner.NewCleaner(), shots, analyzer.OptionsFromConfig(cfg.Analyzer, cfg.Screenshot))
	a.agent = agent.New(f, an, provider, agent.Options{
		Agent:          cfg.Agent,
		MaxScreenshots: cfg.Screenshot.MaxSites,
		LLM: llm.Options{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
		SearchConfigured: brave.Configured(),
	})

	// ── 5. Supporting services ──────────────────────────────────────
	a.cache = cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	if cfg.PromptLog.Enabled {
		a.prompts = promptlog.NewHandle(cfg.PromptLog.DSN)
	}
	a.notifier = webhook.NewNotifier(cfg.Webhook, nil)

	return a
}

// pool returns the browser pool reporter, or nil without a browser.
func (a *app) pool() handler.PoolReporter {
	if a.scraper == nil {
		return nil
	}
	return a.scraper
}

// promptStore returns the prompt log, or nil when it is disabled.
func (a *app) promptStore() promptlog.Store {
	if a.prompts == nil {
		return nil
	}
	return a.prompts
}

func (a *app) routerDeps() api.Deps {
	return api.Deps{
		Agent:    a.agent,
		Pool:     a.pool(),
		Cache:    a.cache,
		Prompts:  a.promptStore(),
		Notifier: a.notifier,
		Version:  getVersion(),
	}
}

// Close waits for pending webhooks and releases the prompt log and browser.
func (a *app) Close() {
	a.cache.Close()
	a.notifier.Wait()
	if a.prompts != nil {
		if err := a.prompts.Close(); err != nil {
			slog.Warn("closing prompt log", "error", err)
		}
	}
	if a.scraper != nil {
		a.scraper.Close()
	}
}
