package cleaner

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// articleSelectors is the priority list for the main content block.
var articleSelectors = mustParseAll(
	"article",
	"main",
	"[role=main]",
	"[class*=article]",
	"[class*=post]",
	"[class*=content]",
)

func mustParseAll(selectors ...string) []cascadia.Sel {
	out := make([]cascadia.Sel, 0, len(selectors))
	for _, s := range selectors {
		sel, err := cascadia.Parse(s)
		if err != nil {
			panic("cleaner: bad selector " + s + ": " + err.Error())
		}
		out = append(out, sel)
	}
	return out
}

// findArticle walks articleSelectors in priority order and returns the first
// element, in document order, whose trimmed text exceeds minChars runes.
// It returns nil when nothing qualifies.
func findArticle(doc *goquery.Document, minChars int) *goquery.Selection {
	if len(doc.Nodes) == 0 {
		return nil
	}
	root := doc.Nodes[0]
	for _, sel := range articleSelectors {
		for _, node := range cascadia.QueryAll(root, sel) {
			s := doc.FindNodes(node)
			if utf8.RuneCountInString(collapseSpace(s.Text())) > minChars {
				return s
			}
		}
	}
	return nil
}
