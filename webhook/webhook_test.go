package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/retry"
)

func TestNewNotifierDisabled(t *testing.T) {
	n := NewNotifier(config.WebhookConfig{}, nil)
	assert.Nil(t, n)
	n.DeliverAsync(&Event{Type: EventTaskCompleted})
	n.Wait()
}

func TestDeliverSigned(t *testing.T) {
	var gotSig string
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, Sign("s3cret", body), gotSig)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(config.WebhookConfig{URL: srv.URL, Secret: "s3cret"}, srv.Client())
	res := &models.AggregateResult{
		ID:          "run-1",
		Task:        "weather in Oslo",
		Analysis:    "1. Cold",
		Sources:     []string{"https://a.example"},
		Screenshots: []models.Screenshot{{Image: []byte("png")}},
	}
	require.NoError(t, n.Deliver(context.Background(), TaskCompleted(res)))

	assert.Contains(t, gotSig, "sha256=")
	assert.Equal(t, EventTaskCompleted, got.Type)
	assert.Equal(t, "run-1", got.TaskID)
	data := got.Data.(map[string]any)
	assert.Nil(t, data["screenshots"])
	assert.Len(t, res.Screenshots, 1, "event must not mutate the result")
}

func TestDeliverAsyncRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.WebhookConfig{URL: srv.URL}, srv.Client())
	n.policy = retry.Schedule(time.Millisecond, time.Millisecond, time.Millisecond)
	n.DeliverAsync(TaskFailed("run-2", "task", models.NewAgentError(models.ErrCodeNoInformation, "nothing", nil)))
	n.Wait()

	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliverAsyncStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	n := NewNotifier(config.WebhookConfig{URL: srv.URL}, srv.Client())
	n.policy = retry.Schedule(time.Millisecond, time.Millisecond, time.Millisecond)
	n.DeliverAsync(&Event{Type: EventTaskCompleted})
	n.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
