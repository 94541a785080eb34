package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed before any text is collected.
var noiseSelectors = strings.Join([]string{
	"script", "style", "noscript", "template", "iframe", "svg",
	"nav", "footer",
}, ", ")

// wrapperSelectors are noise only when they hold no body text. WebForms and
// many forum engines wrap the whole page in a single <form>.
const wrapperSelectors = "form, aside"

// removeNoise deletes non-content elements from doc in place.
func removeNoise(doc *goquery.Document) {
	doc.Find(noiseSelectors).Remove()
	doc.Find(wrapperSelectors).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("p, article, main").Length() == 0
	}).Remove()
}
