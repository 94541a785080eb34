package agent

import (
	"strings"
	"unicode/utf8"

	"github.com/use-agent/webagent/cleaner"
	"github.com/use-agent/webagent/models"
)

const summarizeInstruction = "You extract facts relevant to the user's task from the web sources provided. " +
	"Answer with a numbered or bulleted list of concise facts. " +
	"Use only the sources and do not cite anything beyond what is asked."

const entrySeparator = "\n\n---\n\n"

// BuildPrompt assembles the summarization prompt. Each site block is capped
// at entryBudget runes and the whole prompt at budget runes. It also returns
// how many leading sites contributed at least part of their block.
func BuildPrompt(task string, sites []*models.SiteAnalysis, entryBudget, budget int) (string, int) {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(task)
	b.WriteString("\n\nSources:\n\n")

	// ends[i] is the byte offset where site i's URL line is complete.
	ends := make([]int, 0, len(sites))
	for i, s := range sites {
		if utf8.RuneCountInString(b.String()) >= budget {
			break
		}
		if i > 0 {
			b.WriteString(entrySeparator)
		}
		ends = append(ends, b.Len()+len("URL: ")+len(s.URL))
		b.WriteString(formatEntry(s, entryBudget))
	}

	out := cleaner.Truncate(b.String(), budget)
	used := 0
	for _, end := range ends {
		if end > len(out) {
			break
		}
		used++
	}
	return out, used
}

// formatEntry renders one site as URL, title, headings and content, capped
// at max runes.
func formatEntry(s *models.SiteAnalysis, max int) string {
	var b strings.Builder
	b.WriteString("URL: ")
	b.WriteString(s.URL)
	if s.Content.Title != "" {
		b.WriteString("\nTitle: ")
		b.WriteString(s.Content.Title)
	}
	if len(s.Content.Headings) > 0 {
		b.WriteString("\nHeadings: ")
		b.WriteString(strings.Join(s.Content.Headings, " | "))
	}

	body := strings.Join(s.Content.Paragraphs, "\n")
	if body == "" {
		body = s.Content.Article
	}
	if body != "" {
		b.WriteString("\nContent:\n")
		b.WriteString(body)
	}
	return cleaner.Truncate(b.String(), max)
}

// Broaden turns a task into the wider query used for the single retry: its
// first two words plus suffix.
func Broaden(task, suffix string) string {
	words := strings.Fields(task)
	if len(words) > 2 {
		words = words[:2]
	}
	if suffix != "" {
		words = append(words, suffix)
	}
	return strings.Join(words, " ")
}

// contentText is the text used for near-duplicate detection.
func contentText(s *models.SiteAnalysis) string {
	if len(s.Content.Paragraphs) > 0 {
		return strings.Join(s.Content.Paragraphs, " ")
	}
	return s.Content.Article
}
