// Package screenshot captures page images behind a two-call contract:
// Submit starts a capture, Fetch returns its bytes.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/retry"
)

// ErrDisabled is returned by the None service.
var ErrDisabled = errors.New("screenshot: disabled")

// ErrNotImage is returned when the fetched bytes are not an image.
var ErrNotImage = errors.New("screenshot: response is not an image")

// Options are the rendering options sent with a capture.
type Options struct {
	Width    int
	Height   int
	FullPage bool
	// Format is "png" or "jpeg".
	Format  string
	Quality int
}

// Capture is a submitted screenshot. Exactly one of Image or ImageURL is set
// once Submit succeeds.
type Capture struct {
	PageURL  string
	Image    []byte
	ImageURL string
}

// Service is a screenshot provider.
type Service interface {
	Submit(ctx context.Context, pageURL string, opts Options) (*Capture, error)
	Fetch(ctx context.Context, c *Capture) ([]byte, error)
}

// Take runs Submit then Fetch, retrying the pair under p.
func Take(ctx context.Context, svc Service, pageURL string, opts Options, p retry.Policy) ([]byte, error) {
	var img []byte
	err := retry.Do(ctx, p, func(ctx context.Context) error {
		c, err := svc.Submit(ctx, pageURL, opts)
		if err != nil {
			return err
		}
		img, err = svc.Fetch(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// New returns the service selected by cfg.Provider. renderer may be nil, in
// which case "browser" degrades to None.
func New(cfg config.ScreenshotConfig, renderer Renderer, client *http.Client) Service {
	switch cfg.Provider {
	case "remote":
		return NewRemote(cfg.Endpoint, cfg.APIKey, client)
	case "browser":
		if renderer != nil {
			return NewBrowser(renderer)
		}
	}
	return None{}
}

// None is the Service used when screenshots are disabled.
type None struct{}

func (None) Submit(context.Context, string, Options) (*Capture, error) {
	return nil, retry.Permanent(ErrDisabled)
}

func (None) Fetch(context.Context, *Capture) ([]byte, error) {
	return nil, retry.Permanent(ErrDisabled)
}

// checkImage rejects empty or non-image payloads.
func checkImage(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty body", ErrNotImage)
	}
	if ct := http.DetectContentType(b); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: detected %s", ErrNotImage, ct)
	}
	return nil
}
