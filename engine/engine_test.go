package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var richBody = "<html><head><title>Static Page</title></head><body><p>" +
	strings.Repeat("Server rendered content that is readable without scripts. ", 6) +
	"</p></body></html>"

func TestHTTPEngineFetch(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, richBody)
	}))
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{RejectShells: true})
	res, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, "Static Page", res.Title)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "http", res.EngineName)
	assert.Contains(t, gotUA, "Chrome/")
	assert.Equal(t, acceptLang, gotLang)
}

func TestHTTPEngineStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		ct       string
		terminal bool
	}{
		{"not found", http.StatusNotFound, "text/html", true},
		{"gone", http.StatusGone, "text/html", true},
		{"forbidden", http.StatusForbidden, "text/html", false},
		{"server error", http.StatusInternalServerError, "text/html", false},
		{"json", http.StatusOK, "application/json", true},
		{"pdf", http.StatusOK, "application/pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.ct)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, richBody)
			}))
			defer srv.Close()

			_, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
			require.Error(t, err)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.terminal, se.Terminal())
		})
	}
}

func TestHTTPEngineRejectsShells(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><div id="root"></div><script src="/app.js"></script></body></html>`)
	}))
	defer srv.Close()

	_, err := NewHTTPEngine(HTTPOptions{RejectShells: true}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	assert.ErrorIs(t, err, ErrNeedsBrowser)

	res, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.NoError(t, err, "shells are accepted when no browser can render them")
	assert.Contains(t, res.HTML, `id="root"`)
}

func TestNeedsBrowser(t *testing.T) {
	assert.True(t, needsBrowser([]byte(`<html><body>tiny</body></html>`)))
	assert.True(t, needsBrowser([]byte(`<html><body><div id="app"></div><p>`+strings.Repeat("x", 300)+`</p></body></html>`)))
	assert.True(t, needsBrowser([]byte(`<html><body><noscript>Please enable JavaScript to continue</noscript><p>`+strings.Repeat("x", 300)+`</p></body></html>`)))
	assert.False(t, needsBrowser([]byte(richBody)))
}

// fakeEngine is a scripted Engine for dispatcher tests.
type fakeEngine struct {
	name  string
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &FetchResult{HTML: "<html>" + f.name + "</html>", StatusCode: 200, EngineName: f.name}, nil
}

func TestDispatcherEscalatesOnFailure(t *testing.T) {
	fast := &fakeEngine{name: "http", err: ErrNeedsBrowser}
	slow := &fakeEngine{name: "rod"}
	d := NewDispatcher([]Engine{fast, slow}, []time.Duration{0, 10 * time.Millisecond}, NewDomainMemory(time.Hour))

	res, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://spa.example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)

	// Second fetch for the same domain goes straight to the remembered engine.
	res, err = d.Dispatch(context.Background(), &FetchRequest{URL: "https://spa.example.com/y"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
	assert.Equal(t, int32(1), fast.calls.Load())
	assert.Equal(t, int32(2), slow.calls.Load())
}

func TestDispatcherTerminalShortCircuits(t *testing.T) {
	gone := &fakeEngine{name: "http", err: &StatusError{URL: "u", StatusCode: http.StatusNotFound}}
	browser := &fakeEngine{name: "rod"}
	d := NewDispatcher([]Engine{gone, browser}, []time.Duration{0, 200 * time.Millisecond}, nil)

	start := time.Now()
	_, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com/missing"})
	require.Error(t, err)
	assert.True(t, IsTerminal(err))
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	// Let the cancelled goroutine observe cancellation before asserting.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(0), browser.calls.Load())
}

func TestDispatcherTimeout(t *testing.T) {
	hang := &fakeEngine{name: "http", delay: time.Second}
	d := NewDispatcher([]Engine{hang}, nil, nil)

	_, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://slow.example.com", Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDispatcherAllFail(t *testing.T) {
	boom := errors.New("boom")
	d := NewDispatcher([]Engine{&fakeEngine{name: "a", err: boom}, &fakeEngine{name: "b", err: boom}}, nil, nil)
	_, err := d.Dispatch(context.Background(), &FetchRequest{URL: "https://example.com"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, d.Engines())
}

func TestDomainMemoryExpiry(t *testing.T) {
	dm := NewDomainMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dm.now = func() time.Time { return now }

	dm.Set("example.com", "rod")
	assert.Equal(t, "rod", dm.Get("example.com"))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, "", dm.Get("example.com"))
	assert.Equal(t, 0, dm.Len())

	assert.Equal(t, "", NewDomainMemory(0).Get("example.com"))
}

type stubRenderer struct {
	res *FetchResult
	err error
}

func (s stubRenderer) Render(context.Context, string, map[string]string) (*FetchResult, error) {
	return s.res, s.err
}

func TestBrowserEngine(t *testing.T) {
	res, err := NewBrowserEngine(stubRenderer{res: &FetchResult{HTML: "<p>x</p>", StatusCode: 200}}).
		Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)

	_, err = NewBrowserEngine(stubRenderer{res: &FetchResult{StatusCode: 410}}).
		Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	assert.True(t, IsTerminal(err))
}
