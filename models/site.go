package models

// SiteContent is the bounded structured summary of one page.
type SiteContent struct {
	// Title is the page <title>, falling back to the first <h1>.
	Title string `json:"title"`

	// Headings holds h1–h4 text in document order.
	Headings []string `json:"headings"`

	// Paragraphs holds paragraph-like text above the minimum length, in document order.
	Paragraphs []string `json:"paragraphs"`

	// Article is the main content block as markdown. Empty when no block was found.
	Article string `json:"article,omitempty"`

	// Links holds absolute http(s) links found on the page.
	Links []Link `json:"links,omitempty"`
}

// Empty reports whether the extractor found nothing usable.
func (c SiteContent) Empty() bool {
	return len(c.Paragraphs) == 0 && c.Article == "" && len(c.Headings) == 0
}

// Link represents a hyperlink extracted from the page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Screenshot is a rendered image of a source page.
type Screenshot struct {
	// Label is a human-readable caption, usually the page title.
	Label string `json:"label,omitempty"`

	// Image is the encoded image; it marshals to base64 in JSON.
	Image []byte `json:"image"`

	// Source is the URL the image was rendered from.
	Source string `json:"source"`
}

// SiteAnalysis is the extracted text/screenshot bundle for one candidate URL.
// A failed analysis is represented by a nil *SiteAnalysis.
type SiteAnalysis struct {
	URL         string       `json:"url"`
	Content     SiteContent  `json:"content"`
	Screenshots []Screenshot `json:"screenshots"`

	// FetchedWith names the engine that produced the HTML ("http", "rod", ...).
	FetchedWith string `json:"fetched_with,omitempty"`
}
