package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string

	// Timeout bounds the whole dispatch, escalation included. Zero means
	// the caller's context is the only bound.
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML        string
	Title       string
	StatusCode  int
	ContentType string
	FinalURL    string
	EngineName  string
}

// ErrNeedsBrowser is returned by the HTTP engine when a page looks like a
// JavaScript shell and a browser engine is available to render it.
var ErrNeedsBrowser = errors.New("engine: page needs javascript rendering")

// StatusError reports a response that arrived but is not usable HTML.
type StatusError struct {
	URL         string
	StatusCode  int
	ContentType string
	NonHTML     bool
}

func (e *StatusError) Error() string {
	if e.NonHTML {
		return fmt.Sprintf("engine: %s returned non-html content (%s)", e.URL, e.ContentType)
	}
	return fmt.Sprintf("engine: %s returned status %d (%s)", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Terminal reports whether retrying with another engine is pointless:
// the page is gone or is not an HTML document.
func (e *StatusError) Terminal() bool {
	return e.NonHTML || e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// IsTerminal reports whether err carries a terminal StatusError.
func IsTerminal(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Terminal()
}
