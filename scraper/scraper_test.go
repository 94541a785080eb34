package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/webagent/models"
)

func TestIsTrackerHost(t *testing.T) {
	tests := map[string]bool{
		"doubleclick.net":               true,
		"pagead2.googlesyndication.com": true,
		"STATS.G.DOUBLECLICK.NET":       true,
		"example.com":                   false,
		"net":                           false,
		"":                              false,
		"notdoubleclick.net":            false,
	}
	for host, want := range tests {
		assert.Equal(t, want, isTrackerHost(host), host)
	}
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, models.ErrCodeTimeout,
		categorizeError(fmt.Errorf("nav: %w", context.DeadlineExceeded), "x").Code)
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.Canceled, "x").Code)
	assert.Equal(t, models.ErrCodeFetchFailed, categorizeError(errors.New("net::ERR_NAME_NOT_RESOLVED"), "x").Code)
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"Referer": "https://www.google.com/"})
	assert.Equal(t, "https://www.google.com/", m["Referer"].Str())
}
