package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/webagent/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *BraveClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewBraveClient(config.SearchConfig{Endpoint: srv.URL, APIKey: "tok", Count: 7}, srv.Client())
}

func TestSearchParsesResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "italian food nyc", r.URL.Query().Get("q"))
		assert.Equal(t, "7", r.URL.Query().Get("count"))
		assert.Equal(t, "pw", r.URL.Query().Get("freshness"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type":"search","web":{"results":[
			{"url":"https://a.example/1","title":"A","description":"first"},
			{"url":"https://b.example/2","title":"B","description":"second"}]}}`)
	})

	results, err := c.Search(context.Background(), Query{Text: "italian food nyc", Freshness: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{URL: "https://a.example/1", Title: "A", Description: "first"},
		{URL: "https://b.example/2", Title: "B", Description: "second"},
	}, results)
}

func TestSearchStatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusUnauthorized, false},
		{http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(tt.status)
			})
			_, err := c.Search(context.Background(), Query{Text: "x"})
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.retryable, se.Retryable())
			assert.Equal(t, 3*time.Second, se.RetryAfter())
		})
	}
}

func TestSearchWithoutKey(t *testing.T) {
	c := NewBraveClient(config.SearchConfig{Endpoint: "http://unused"}, nil)
	assert.False(t, c.Configured())
	_, err := c.Search(context.Background(), Query{Text: "x"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestSearchMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"web":`)
	})
	_, err := c.Search(context.Background(), Query{Text: "x"})
	require.Error(t, err)
}
