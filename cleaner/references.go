package cleaner

import (
	"fmt"
	"regexp"
	"strings"
)

var inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)

// referenceLinks rewrites inline markdown links as numbered references and
// appends the reference list after a rule. A repeated URL keeps its first
// number. Text without links is returned unchanged.
//
//	"see [Go](https://go.dev)" → "see [Go][1]\n\n---\n[1]: https://go.dev"
func referenceLinks(md string) string {
	numbers := make(map[string]int)
	var refs []string

	out := inlineLinkRe.ReplaceAllStringFunc(md, func(m string) string {
		parts := inlineLinkRe.FindStringSubmatch(m)
		text, href := parts[1], parts[2]
		n, ok := numbers[href]
		if !ok {
			n = len(refs) + 1
			numbers[href] = n
			refs = append(refs, fmt.Sprintf("[%d]: %s", n, href))
		}
		return fmt.Sprintf("[%s][%d]", text, n)
	})

	if len(refs) == 0 {
		return md
	}
	return out + "\n\n---\n" + strings.Join(refs, "\n")
}
