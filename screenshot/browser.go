package screenshot

import (
	"context"

	"github.com/use-agent/webagent/scraper"
)

// Renderer captures a page in a local browser. scraper.Scraper implements it.
type Renderer interface {
	Screenshot(ctx context.Context, url string, opts scraper.ScreenshotOptions) ([]byte, error)
}

// Browser captures screenshots with the local headless browser. Submit does
// the rendering; Fetch hands back the bytes.
type Browser struct {
	renderer Renderer
}

// NewBrowser returns a Browser service backed by r.
func NewBrowser(r Renderer) *Browser {
	return &Browser{renderer: r}
}

func (b *Browser) Submit(ctx context.Context, pageURL string, opts Options) (*Capture, error) {
	img, err := b.renderer.Screenshot(ctx, pageURL, scraper.ScreenshotOptions{
		Width:    opts.Width,
		Height:   opts.Height,
		FullPage: opts.FullPage,
		Format:   opts.Format,
		Quality:  opts.Quality,
	})
	if err != nil {
		return nil, err
	}
	return &Capture{PageURL: pageURL, Image: img}, nil
}

func (b *Browser) Fetch(_ context.Context, c *Capture) ([]byte, error) {
	if err := checkImage(c.Image); err != nil {
		return nil, err
	}
	return c.Image, nil
}
