package screenshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/webagent/retry"
)

// maxImageBytes caps every response body. Larger bodies fail permanently
// rather than being cut short.
var maxImageBytes int64 = 15 << 20

// StatusError is a non-2xx answer from the screenshot API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("screenshot: API returned status %d: %s", e.StatusCode, e.Body)
}

// Remote calls an HTTP rendering API as
//
//	GET {endpoint}?url=<page>&width=<w>&height=<h>&full_page=<bool>&format=<fmt>
//
// The API may answer with the image itself, or with a JSON envelope pointing
// at a second URL that serves the image.
type Remote struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemote creates a Remote service. A nil client uses a 20s-timeout client.
func NewRemote(endpoint, apiKey string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Remote{endpoint: endpoint, apiKey: apiKey, client: client}
}

// envelope covers the JSON shapes seen from rendering APIs.
type envelope struct {
	URL        string          `json:"url"`
	ImageURL   string          `json:"image_url"`
	Screenshot json.RawMessage `json:"screenshot"`
	Data       *struct {
		Screenshot struct {
			URL string `json:"url"`
		} `json:"screenshot"`
	} `json:"data"`
}

func (e envelope) imageURL() string {
	if e.ImageURL != "" {
		return e.ImageURL
	}
	if len(e.Screenshot) > 0 {
		var s string
		if json.Unmarshal(e.Screenshot, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			URL string `json:"url"`
		}
		if json.Unmarshal(e.Screenshot, &obj) == nil && obj.URL != "" {
			return obj.URL
		}
	}
	if e.Data != nil && e.Data.Screenshot.URL != "" {
		return e.Data.Screenshot.URL
	}
	return e.URL
}

func (r *Remote) Submit(ctx context.Context, pageURL string, opts Options) (*Capture, error) {
	if r.endpoint == "" {
		return nil, retry.Permanent(errors.New("screenshot: remote endpoint not configured"))
	}
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("screenshot: bad endpoint: %w", err))
	}
	q := u.Query()
	q.Set("url", pageURL)
	if opts.Width > 0 {
		q.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("height", strconv.Itoa(opts.Height))
	}
	if opts.FullPage {
		q.Set("full_page", "true")
	}
	if opts.Format != "" {
		q.Set("format", opts.Format)
	}
	if opts.Quality > 0 {
		q.Set("quality", strconv.Itoa(opts.Quality))
	}
	u.RawQuery = q.Encode()

	body, ct, err := r.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(ct, "image/") {
		return &Capture{PageURL: pageURL, Image: body}, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Some APIs send images as application/octet-stream.
		if checkImage(body) == nil {
			return &Capture{PageURL: pageURL, Image: body}, nil
		}
		return nil, retry.Permanent(fmt.Errorf("screenshot: decode envelope: %w", err))
	}
	imgURL := env.imageURL()
	if imgURL == "" {
		return nil, retry.Permanent(errors.New("screenshot: envelope has no image url"))
	}
	ref, err := url.Parse(imgURL)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("screenshot: bad image url: %w", err))
	}
	return &Capture{PageURL: pageURL, ImageURL: u.ResolveReference(ref).String()}, nil
}

func (r *Remote) Fetch(ctx context.Context, c *Capture) ([]byte, error) {
	img := c.Image
	if img == nil {
		var err error
		if img, _, err = r.get(ctx, c.ImageURL); err != nil {
			return nil, err
		}
	}
	if err := checkImage(img); err != nil {
		return nil, retry.Permanent(err)
	}
	return img, nil
}

// get performs one GET. The API key is only sent to the endpoint's own host;
// image URLs from an envelope usually point at a CDN or a presigned bucket.
// 429 and 5xx are retryable; other non-2xx statuses are permanent.
func (r *Remote) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", retry.Permanent(fmt.Errorf("screenshot: build request: %w", err))
	}
	if r.apiKey != "" && r.sameHost(req.URL) {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("screenshot: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("screenshot: read body: %w", err)
	}
	if int64(len(body)) > maxImageBytes {
		return nil, "", retry.Permanent(fmt.Errorf("screenshot: response exceeds %d bytes", maxImageBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, "", serr
		}
		return nil, "", retry.Permanent(serr)
	}
	return body, strings.ToLower(resp.Header.Get("Content-Type")), nil
}

func (r *Remote) sameHost(u *url.URL) bool {
	ep, err := url.Parse(r.endpoint)
	if err != nil {
		return false
	}
	return strings.EqualFold(ep.Scheme, u.Scheme) && strings.EqualFold(ep.Host, u.Host)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
