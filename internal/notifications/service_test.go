package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mixdown/internal/config"
	"mixdown/internal/notifications"
)

type recordedRequest struct {
	body     string
	title    string
	tags     string
	priority string
}

func newRecordingService(t *testing.T) (notifications.Service, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			body:     string(body),
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	return notifications.NewService(&cfg), &requests
}

func TestNotifyMixCompleted(t *testing.T) {
	svc, requests := newRecordingService(t)

	if err := svc.NotifyMixCompleted(context.Background(), "job-1", "wide_pop", -13.7); err != nil {
		t.Fatalf("NotifyMixCompleted: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if got.title != "Mixdown - Mix Ready" {
		t.Errorf("title = %q", got.title)
	}
	if !strings.Contains(got.body, "job-1") || !strings.Contains(got.body, "wide_pop") {
		t.Errorf("body missing job details: %q", got.body)
	}
	if !strings.Contains(got.tags, "mix") {
		t.Errorf("tags = %q", got.tags)
	}
}

func TestNotifyJobFailedUsesHighPriority(t *testing.T) {
	svc, requests := newRecordingService(t)

	if err := svc.NotifyJobFailed(context.Background(), "job-2", "retries exhausted"); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}

	got := (*requests)[0]
	if got.priority != "high" {
		t.Errorf("priority = %q, want high", got.priority)
	}
	if !strings.Contains(got.body, "retries exhausted") {
		t.Errorf("body = %q", got.body)
	}
}

func TestNotifyJobFailedEmptyReason(t *testing.T) {
	svc, requests := newRecordingService(t)

	if err := svc.NotifyJobFailed(context.Background(), "job-3", "  "); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}
	if !strings.Contains((*requests)[0].body, "unknown") {
		t.Errorf("body = %q, want placeholder reason", (*requests)[0].body)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status code included", err)
	}
}

func TestUnconfiguredTopicIsNoop(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyMasterCompleted(context.Background(), "job-4"); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
}
