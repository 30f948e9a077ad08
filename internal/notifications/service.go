package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mixdown/internal/config"
)

const userAgent = "Mixdown-Go/0.1.0"

// Service defines the notification surface exposed to the worker.
type Service interface {
	NotifyMixCompleted(ctx context.Context, jobID, presetKey string, lufs float64) error
	NotifyMasterCompleted(ctx context.Context, jobID string) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	NotifyWorkerPaused(ctx context.Context, consecutiveErrors int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Noop returns a Service that discards every notification.
func Noop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyMixCompleted(ctx context.Context, jobID, presetKey string, lufs float64) error {
	data := payload{
		title:   "Mixdown - Mix Ready",
		message: fmt.Sprintf("Mix ready: job %s (preset %s, %.1f LUFS)", jobID, presetKey, lufs),
		tags:    []string{"mixdown", "mix", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMasterCompleted(ctx context.Context, jobID string) error {
	data := payload{
		title:    "Mixdown - Master Ready",
		message:  fmt.Sprintf("Master ready: job %s", jobID),
		tags:     []string{"mixdown", "master", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Mixdown - Job Failed",
		message:  fmt.Sprintf("Job %s failed: %s", jobID, reason),
		tags:     []string{"mixdown", "error", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkerPaused(ctx context.Context, consecutiveErrors int) error {
	data := payload{
		title:    "Mixdown - Worker Paused",
		message:  fmt.Sprintf("Worker cooling down after %d consecutive errors", consecutiveErrors),
		tags:     []string{"mixdown", "worker", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Mixdown - Test",
		message:  "Notification system test",
		tags:     []string{"mixdown", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyMixCompleted(context.Context, string, string, float64) error { return nil }
func (noopService) NotifyMasterCompleted(context.Context, string) error               { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error             { return nil }
func (noopService) NotifyWorkerPaused(context.Context, int) error                     { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
