package cleaner

import (
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/webagent/models"
)

// Extraction bounds.
const (
	minArticleChars   = 100
	minParagraphChars = 40
	maxHeadings       = 12
	maxParagraphs     = 25
	maxLinks          = 20
)

// Cleaner turns raw HTML into a bounded models.SiteContent.
//
// The markdown converter is created once and reused across all requests
// (goroutine-safe), so a single Cleaner can be shared by every analyzer.
type Cleaner struct {
	mdConverter *converter.Converter
}

// NewCleaner initialises the Cleaner with a pre-configured Markdown converter.
func NewCleaner() *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
	}
}

// Extract builds a SiteContent from rawHTML using DOM selectors only.
//
// It never panics and never fails: empty, malformed or non-HTML input yields
// a SiteContent with empty (non-nil) Headings and Paragraphs and no Article.
func (c *Cleaner) Extract(rawHTML string) models.SiteContent {
	return c.extract(rawHTML, "")
}

// ExtractFrom is Extract plus the steps that need the page URL: relative
// links are resolved against sourceURL, and Readability is tried as a last
// resort when no article selector matched.
func (c *Cleaner) ExtractFrom(rawHTML, sourceURL string) models.SiteContent {
	return c.extract(rawHTML, sourceURL)
}

func (c *Cleaner) extract(rawHTML, sourceURL string) (content models.SiteContent) {
	content = emptyContent()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("extract: recovered from panic", "url", sourceURL, "panic", r)
			content = emptyContent()
		}
	}()

	if strings.TrimSpace(rawHTML) == "" {
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Debug("extract: parse failed", "url", sourceURL, "error", err)
		return content
	}

	// ── 1. Links (before noise removal, nav links still count) ──────
	if sourceURL != "" {
		content.Links = collectLinks(doc, sourceURL, maxLinks)
	}

	// ── 2. Strip noise ──────────────────────────────────────────────
	removeNoise(doc)

	// ── 3. Title, headings, paragraphs ──────────────────────────────
	content.Title = extractTitle(doc)
	content.Headings = collectHeadings(doc, maxHeadings)
	content.Paragraphs = collectParagraphs(doc, minParagraphChars, maxParagraphs)

	// ── 4. Article ──────────────────────────────────────────────────
	sel := findArticle(doc, minArticleChars)
	if sel == nil {
		sel = densestBlock(doc, minArticleChars)
	}
	if sel != nil {
		content.Article = c.articleText(sel, sourceURL)
	}

	// ── 5. Readability fallback ─────────────────────────────────────
	if content.Article == "" && sourceURL != "" && doc.Find("body *").Length() > 0 {
		if article, ok := ExtractContent(rawHTML, sourceURL); ok {
			md, err := ToMarkdown(c.mdConverter, article.Content, sourceURL)
			if err != nil || strings.TrimSpace(md) == "" {
				md = collapseSpace(article.TextContent)
			}
			content.Article = strings.TrimSpace(md)
			if content.Title == "" {
				content.Title = strings.TrimSpace(article.Title)
			}
		}
	}

	return content
}

// articleText renders the selected block as markdown with reference-style
// links, falling back to its plain text when conversion fails or yields
// nothing. References trail the body so entry truncation drops them first.
func (c *Cleaner) articleText(sel *goquery.Selection, sourceURL string) string {
	outer, err := goquery.OuterHtml(sel)
	if err == nil {
		md, err := ToMarkdown(c.mdConverter, outer, sourceURL)
		if err == nil && strings.TrimSpace(md) != "" {
			return referenceLinks(strings.TrimSpace(md))
		}
		if err != nil {
			slog.Debug("extract: markdown conversion failed", "url", sourceURL, "error", err)
		}
	}
	return collapseSpace(sel.Text())
}

func emptyContent() models.SiteContent {
	return models.SiteContent{
		Headings:   []string{},
		Paragraphs: []string{},
	}
}

// collapseSpace trims s and folds every whitespace run into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
