package cleaner

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/webagent/models"
)

// ExtractLinks parses rawHTML and returns up to limit absolute http(s) links,
// resolved against sourceURL and deduplicated. limit <= 0 means no cap.
func ExtractLinks(rawHTML, sourceURL string, limit int) []models.Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return []models.Link{}
	}
	return collectLinks(doc, sourceURL, limit)
}

func collectLinks(doc *goquery.Document, sourceURL string, limit int) []models.Link {
	links := []models.Link{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if href == "" {
			return true
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return true
		}
		// Skip javascript:, mailto:, tel: etc.
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		resolved.Fragment = ""

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return true
		}
		seen[absURL] = struct{}{}

		links = append(links, models.Link{Href: absURL, Text: collapseSpace(s.Text())})
		return limit <= 0 || len(links) < limit
	})

	return links
}

// extractTitle returns the <title> text, or the first <h1> when the title is empty.
func extractTitle(doc *goquery.Document) string {
	if t := collapseSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return collapseSpace(doc.Find("h1").First().Text())
}

// collectHeadings returns h1–h4 text in document order, skipping empty ones.
func collectHeadings(doc *goquery.Document, limit int) []string {
	headings := []string{}
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := collapseSpace(s.Text()); text != "" {
			headings = append(headings, text)
		}
		return len(headings) < limit
	})
	return headings
}

// collectParagraphs returns paragraph-like text longer than minChars runes,
// in document order. A blockquote wrapping its own <p> elements is skipped so
// its text is not counted twice.
func collectParagraphs(doc *goquery.Document, minChars, limit int) []string {
	paragraphs := []string{}
	doc.Find("p, blockquote").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "blockquote" && s.Find("p").Length() > 0 {
			return true
		}
		text := collapseSpace(s.Text())
		if utf8.RuneCountInString(text) > minChars {
			paragraphs = append(paragraphs, text)
		}
		return len(paragraphs) < limit
	})
	return paragraphs
}
