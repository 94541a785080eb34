package cleaner

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Signal weights for block scoring.
const (
	wTextDensity = 3.0
	wLinkDensity = -2.0
	wTag         = 1.5
	wClassID     = 1.0
	wTextLength  = 0.5
)

var (
	contentHints     = []string{"content", "article", "post", "entry", "story", "main", "text"}
	boilerplateHints = []string{"sidebar", "widget", "nav", "menu", "comment", "footer", "header", "banner", "popup", "modal", "cookie", "social", "share", "related", "promo"}
)

// densestBlock scores every div, section and td under <body> and returns the
// best one whose text exceeds minChars runes. Blocks with a non-positive score
// never win. Used when no article selector matched.
func densestBlock(doc *goquery.Document, minChars int) *goquery.Selection {
	var (
		best      *goquery.Selection
		bestScore float64
	)
	doc.Find("body div, body section, body td").Each(func(_ int, el *goquery.Selection) {
		text := collapseSpace(el.Text())
		if utf8.RuneCountInString(text) <= minChars {
			return
		}
		if score := blockScore(el, text); score > bestScore {
			best, bestScore = el, score
		}
	})
	return best
}

// blockScore weighs text density, link density, tag and class/id hints and
// a log-scale length bonus.
func blockScore(el *goquery.Selection, text string) float64 {
	outer, err := goquery.OuterHtml(el)
	if err != nil || outer == "" {
		return 0
	}
	textLen := len(text)

	linkLen := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += len(collapseSpace(a.Text()))
	})

	density := float64(textLen) / float64(len(outer))
	linkDensity := 0.0
	if textLen > 0 {
		linkDensity = float64(linkLen) / float64(textLen)
	}

	return density*wTextDensity +
		linkDensity*wLinkDensity +
		tagWeight(el)*wTag +
		classIDWeight(el)*wClassID +
		math.Log10(float64(textLen)+1)*wTextLength
}

func tagWeight(el *goquery.Selection) float64 {
	switch goquery.NodeName(el) {
	case "section":
		return 2.0
	case "td":
		return -1.0
	default:
		return 0
	}
}

// classIDWeight counts at most one hint in each direction.
func classIDWeight(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	attrs := strings.ToLower(class + " " + id)

	score := 0.0
	if containsAny(attrs, contentHints) {
		score += 3.0
	}
	if containsAny(attrs, boilerplateHints) {
		score -= 3.0
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
