// Package finder resolves a task into an ordered list of candidate URLs.
package finder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/llm"
	"github.com/use-agent/webagent/retry"
	"github.com/use-agent/webagent/search"
)

const rewriteInstruction = "You turn a user's information request into one web search query. " +
	"Prefer specific names, places and dates so the newest relevant pages rank first. " +
	"Answer with the query only, no quotes and no explanation."

const suggestInstruction = "You suggest web pages that are likely to answer the user's request. " +
	"Answer with a JSON array of at most 5 absolute https URLs and nothing else."

// Searcher runs one web search.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Result, error)
}

// Finder turns a task into candidate URLs. It never fails: every error path
// degrades to fewer results or the configured fallback list.
type Finder struct {
	searcher  Searcher
	llm       llm.Provider // nil disables rewrite and suggest
	cfg       config.FinderConfig
	count     int
	freshness string
	policy    retry.Policy
}

// New builds a Finder. provider may be nil.
func New(searcher Searcher, provider llm.Provider, cfg config.FinderConfig, scfg config.SearchConfig) *Finder {
	policy := retry.Exponential(scfg.RetryAttempts, scfg.RetryBaseDelay)
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		slog.Warn("search failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}
	return &Finder{
		searcher:  searcher,
		llm:       provider,
		cfg:       cfg,
		count:     scfg.Count,
		freshness: scfg.Freshness,
		policy:    policy,
	}
}

// WithPolicy replaces the search retry policy. Tests use it to avoid real sleeps.
func (f *Finder) WithPolicy(p retry.Policy) *Finder {
	f.policy = p
	return f
}

// Result is what Find resolved, including the query actually sent.
type Result struct {
	Query string
	URLs  []string
}

// Find returns candidate URLs for task in rank order, deduplicated and capped.
func (f *Finder) Find(ctx context.Context, task string) []string {
	return f.Resolve(ctx, task).URLs
}

// Resolve is Find that also reports the search query.
func (f *Finder) Resolve(ctx context.Context, task string) Result {
	query := f.rewrite(ctx, task)

	urls := f.search(ctx, query)
	if len(urls) == 0 && f.cfg.LLMSuggest {
		urls = f.suggest(ctx, task)
	}
	if len(urls) == 0 {
		urls = f.normalize(f.cfg.FallbackSources)
		if len(urls) > 0 {
			slog.Info("using fallback sources", "task", task, "count", len(urls))
		}
	}
	return Result{Query: query, URLs: urls}
}

func (f *Finder) rewrite(ctx context.Context, task string) string {
	if !f.cfg.RewriteQuery || f.llm == nil {
		return task
	}
	c, err := f.llm.Complete(ctx, []llm.Message{llm.System(rewriteInstruction), llm.User(task)}, llm.Options{MaxTokens: 60})
	if err != nil {
		slog.Warn("query rewrite failed, using task verbatim", "error", err)
		return task
	}
	q := strings.Trim(strings.TrimSpace(c.Text), `"'`)
	if q == "" || strings.Contains(q, "\n") {
		return task
	}
	return q
}

func (f *Finder) search(ctx context.Context, query string) []string {
	if f.searcher == nil {
		return nil
	}
	var results []search.Result
	err := retry.Do(ctx, f.policy, func(ctx context.Context) error {
		res, err := f.searcher.Search(ctx, search.Query{Text: query, Count: f.count, Freshness: f.freshness})
		if err != nil {
			return classify(err)
		}
		results = res
		return nil
	})
	if err != nil {
		slog.Warn("search failed", "query", query, "error", err)
		return nil
	}

	raw := make([]string, 0, len(results))
	for _, r := range results {
		raw = append(raw, r.URL)
	}
	return f.normalize(raw)
}

// classify marks errors that repeating the request cannot fix.
func classify(err error) error {
	if errors.Is(err, search.ErrNoAPIKey) {
		return retry.Permanent(err)
	}
	var se *search.StatusError
	if errors.As(err, &se) && !se.Retryable() {
		return retry.Permanent(err)
	}
	if errors.Is(err, context.Canceled) {
		return retry.Permanent(err)
	}
	return err
}

func (f *Finder) suggest(ctx context.Context, task string) []string {
	if f.llm == nil {
		return nil
	}
	c, err := f.llm.Complete(ctx, []llm.Message{llm.System(suggestInstruction), llm.User(task)}, llm.Options{MaxTokens: 300})
	if err != nil {
		slog.Warn("URL suggestion failed", "error", err)
		return nil
	}
	urls, err := llm.ParseURLList(c.Text)
	if err != nil {
		slog.Warn("URL suggestion rejected", "error", err)
		return nil
	}
	return f.normalize(urls)
}

// normalize keeps absolute http(s) URLs, drops exact duplicates and caps the
// list at MaxSources, preserving order.
func (f *Finder) normalize(in []string) []string {
	limit := f.cfg.MaxSources
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, u := range in {
		u = strings.TrimSpace(u)
		if !llm.IsWebURL(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
