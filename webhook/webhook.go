// Package webhook notifies an external endpoint when a task finishes.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/use-agent/webagent/config"
	"github.com/use-agent/webagent/models"
	"github.com/use-agent/webagent/retry"
)

// Event types.
const (
	EventTaskCompleted = "task.completed"
	EventTaskFailed    = "task.failed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Webagent-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	TaskID    string `json:"task_id"`
	Task      string `json:"task"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

// TaskCompleted builds the event for a finished task. Screenshot bytes are
// left out of the payload; receivers get the sources and the analysis.
func TaskCompleted(res *models.AggregateResult) *Event {
	slim := *res
	slim.Screenshots = nil
	return &Event{
		Type:      EventTaskCompleted,
		TaskID:    res.ID,
		Task:      res.Task,
		Timestamp: time.Now().Unix(),
		Data:      &slim,
	}
}

// TaskFailed builds the event for a task that ended in a terminal error.
func TaskFailed(taskID, task string, err error) *Event {
	return &Event{
		Type:      EventTaskFailed,
		TaskID:    taskID,
		Task:      task,
		Timestamp: time.Now().Unix(),
		Error:     err.Error(),
		Code:      models.CodeOf(err),
	}
}

// Notifier delivers events to one URL.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	policy retry.Policy
	wg     sync.WaitGroup
}

// NewNotifier returns nil when cfg.URL is empty; a nil Notifier drops events.
func NewNotifier(cfg config.WebhookConfig, client *http.Client) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: client,
		policy: retry.Schedule(1*time.Second, 5*time.Second, 30*time.Second),
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends one event, without retries.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return retry.Permanent(fmt.Errorf("webhook: marshal event: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("webhook: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Webagent-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return retry.Permanent(fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode))
	}
	return nil
}

// DeliverAsync sends event in the background, retrying after 1s, 5s and 30s.
func (n *Notifier) DeliverAsync(event *Event) {
	if n == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		attempts := 0
		err := retry.Do(context.Background(), n.policy, func(ctx context.Context) error {
			attempts++
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := n.Deliver(ctx, event)
			if err != nil {
				slog.Warn("webhook delivery failed",
					"url", n.url,
					"event", event.Type,
					"task_id", event.TaskID,
					"attempt", attempts,
					"error", err,
				)
			}
			return err
		})
		if err != nil {
			slog.Error("webhook delivery gave up",
				"url", n.url,
				"event", event.Type,
				"task_id", event.TaskID,
				"attempts", attempts,
			)
			return
		}
		slog.Info("webhook delivered",
			"url", n.url,
			"event", event.Type,
			"task_id", event.TaskID,
			"attempt", attempts,
		)
	}()
}

// Wait blocks until in-flight async deliveries finish.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
