// Package agent runs the task pipeline: find sources, analyze them in
// parallel, and summarize what survived with one LLM call.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/webagent/cleaner"
	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/finder"
	"github.com/use-agent/webagent/llm"
	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/simhash"
)

// SourceFinder resolves a task into candidate URLs. *finder.Finder satisfies it.
type SourceFinder interface {
	Resolve(ctx context.Context, task string) finder.Result
}

// SiteAnalyzer analyzes one URL; nil means the site was dropped.
// *analyzer.Analyzer satisfies it.
type SiteAnalyzer interface {
	Analyze(ctx context.Context, url string, wantScreenshot bool) *models.SiteAnalysis
}

// Options configure an Agent.
type Options struct {
	Agent config.AgentConfig

	// MaxScreenshots is how many leading candidates request a screenshot.
	MaxScreenshots int

	// LLM are the summarization generation settings.
	LLM llm.Options

	// SearchConfigured reports whether the search API has credentials.
	SearchConfigured bool
}

// Agent is safe for concurrent use; runs share no mutable state.
type Agent struct {
	finder   SourceFinder
	analyzer SiteAnalyzer
	llm      llm.Provider
	opts     Options
}

// New creates an Agent. provider may be nil when no LLM key is configured;
// every run then fails Preflight.
func New(f SourceFinder, a SiteAnalyzer, provider llm.Provider, opts Options) *Agent {
	return &Agent{finder: f, analyzer: a, llm: provider, opts: opts}
}

// Preflight reports missing credentials for the external services a task needs.
func (a *Agent) Preflight() error {
	if a.llm == nil {
		return models.NewAgentError(models.ErrCodeConfigMissing, "LLM API key is not configured", nil)
	}
	if !a.opts.SearchConfigured {
		return models.NewAgentError(models.ErrCodeConfigMissing, "search API key is not configured", nil)
	}
	return nil
}

// Run executes the whole pipeline for task.
//
// Near-duplicate pages are dropped before summarization and are not counted
// as sources, so Sources can be shorter than the number of successful
// analyses.
func (a *Agent) Run(ctx context.Context, task string) (*models.AggregateResult, error) {
	if err := a.Preflight(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &models.AggregateResult{ID: uuid.NewString(), Task: task}
	log := slog.With("task_id", res.ID)

	// ── 1. Discovery and analysis ───────────────────────────────────
	query, sites, disc, anal := a.gather(ctx, task)
	res.Timing.DiscoveryMs += disc.Milliseconds()
	res.Timing.AnalysisMs += anal.Milliseconds()

	// ── 2. One broadened retry ──────────────────────────────────────
	if len(sites) == 0 {
		broad := Broaden(task, a.opts.Agent.BroadenSuffix)
		log.Info("no sites analyzed, broadening task", "task", task, "broadened", broad)
		query, sites, disc, anal = a.gather(ctx, broad)
		res.Timing.DiscoveryMs += disc.Milliseconds()
		res.Timing.AnalysisMs += anal.Milliseconds()
		res.Broadened = true
	}
	if len(sites) == 0 {
		return nil, models.NewAgentError(models.ErrCodeNoInformation, "no information found for this task", nil)
	}
	res.Query = query

	// ── 3. Near-duplicate removal ───────────────────────────────────
	sites = a.dedupe(sites)

	// ── 4. Summarize ────────────────────────────────────────────────
	analysis, usage, used, took, err := a.summarize(ctx, task, sites)
	res.Timing.SummarizationMs = took.Milliseconds()
	if err != nil {
		return nil, err
	}

	// ── 5. Assemble ─────────────────────────────────────────────────
	res.Analysis = analysis
	res.Usage = usage
	res.Sources, res.Screenshots = collect(sites[:used], sites)
	res.Timing.TotalMs = time.Since(start).Milliseconds()

	log.Info("task completed",
		"sources", len(res.Sources),
		"screenshots", len(res.Screenshots),
		"broadened", res.Broadened,
		"total_ms", res.Timing.TotalMs,
	)
	return res, nil
}

// AnalyzeURL summarizes a single page for task, with a screenshot.
func (a *Agent) AnalyzeURL(ctx context.Context, pageURL, task string) (*models.AggregateResult, error) {
	if a.llm == nil {
		return nil, models.NewAgentError(models.ErrCodeConfigMissing, "LLM API key is not configured", nil)
	}
	if !llm.IsWebURL(pageURL) {
		return nil, models.NewAgentError(models.ErrCodeInvalidInput, "url must be an absolute http or https URL", nil)
	}

	start := time.Now()
	res := &models.AggregateResult{ID: uuid.NewString(), Task: task}

	site := a.analyzer.Analyze(ctx, pageURL, true)
	res.Timing.AnalysisMs = time.Since(start).Milliseconds()
	if site == nil {
		return nil, models.NewAgentError(models.ErrCodeFetchFailed, "could not fetch "+pageURL, nil)
	}

	sites := []*models.SiteAnalysis{site}
	analysis, usage, _, took, err := a.summarize(ctx, task, sites)
	res.Timing.SummarizationMs = took.Milliseconds()
	if err != nil {
		return nil, err
	}

	res.Analysis = analysis
	res.Usage = usage
	res.Sources, res.Screenshots = collect(sites, sites)
	res.Timing.TotalMs = time.Since(start).Milliseconds()
	return res, nil
}

// gather finds candidates for task and analyzes all of them concurrently,
// returning the successes in candidate order.
func (a *Agent) gather(ctx context.Context, task string) (string, []*models.SiteAnalysis, time.Duration, time.Duration) {
	t0 := time.Now()
	found := a.finder.Resolve(ctx, task)
	disc := time.Since(t0)

	t1 := time.Now()
	slots := make([]*models.SiteAnalysis, len(found.URLs))
	var g errgroup.Group
	if n := a.opts.Agent.MaxParallel; n > 0 {
		g.SetLimit(n)
	}
	for i, u := range found.URLs {
		g.Go(func() error {
			slots[i] = a.analyzer.Analyze(ctx, u, i < a.opts.MaxScreenshots)
			return nil
		})
	}
	_ = g.Wait()

	sites := make([]*models.SiteAnalysis, 0, len(slots))
	for i, s := range slots {
		if s == nil {
			slog.Info("site dropped", "url", found.URLs[i])
			continue
		}
		sites = append(sites, s)
	}
	return found.Query, sites, disc, time.Since(t1)
}

func (a *Agent) dedupe(sites []*models.SiteAnalysis) []*models.SiteAnalysis {
	texts := make([]string, len(sites))
	for i, s := range sites {
		texts[i] = contentText(s)
	}
	keep := simhash.Unique(texts, a.opts.Agent.DedupeDistance)
	if len(keep) == len(sites) {
		return sites
	}
	out := make([]*models.SiteAnalysis, 0, len(keep))
	for _, i := range keep {
		out = append(out, sites[i])
	}
	slog.Info("dropped near-duplicate sites", "dropped", len(sites)-len(out))
	return out
}

func (a *Agent) summarize(ctx context.Context, task string, sites []*models.SiteAnalysis) (string, *models.LLMUsage, int, time.Duration, error) {
	prompt, used := BuildPrompt(task, sites, a.opts.Agent.EntryBudget, a.opts.Agent.PromptBudget)
	slog.Debug("summarizing",
		"sites", used,
		"prompt_chars", len([]rune(prompt)),
		"prompt_tokens_est", cleaner.EstimateTokens(prompt),
	)

	start := time.Now()
	c, err := a.llm.Complete(ctx, []llm.Message{llm.System(summarizeInstruction), llm.User(prompt)}, a.opts.LLM)
	took := time.Since(start)
	if err != nil {
		return "", nil, 0, took, models.NewAgentError(models.ErrCodeSummarizationFailure, "summarization failed", err)
	}
	return c.Text, c.Usage, used, took, nil
}

// collect lists the URLs of used sites and every screenshot of kept sites,
// both in candidate order.
func collect(used, kept []*models.SiteAnalysis) ([]string, []models.Screenshot) {
	sources := make([]string, 0, len(used))
	for _, s := range used {
		sources = append(sources, s.URL)
	}
	shots := []models.Screenshot{}
	for _, s := range kept {
		shots = append(shots, s.Screenshots...)
	}
	return sources, shots
}
