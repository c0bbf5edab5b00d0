package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"spool/internal/config"
	"spool/internal/notifications"
)

type recordedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newRecordingServer(t *testing.T, requests *[]recordedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		*requests = append(*requests, recordedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func newNtfyConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	svc := notifications.NewService(newNtfyConfig(""))
	if err := svc.NotifyJobQueued(context.Background(), "title", "mp4"); err != nil {
		t.Fatalf("noop queued: %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop test: %v", err)
	}
}

func TestNotifyJobCompletedSendsHeaders(t *testing.T) {
	var requests []recordedRequest
	server := newRecordingServer(t, &requests)

	svc := notifications.NewService(newNtfyConfig(server.URL))
	if err := svc.NotifyJobCompleted(context.Background(), "Talk recording", "download_ab12.mp4"); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}

	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	req := requests[0]
	if req.title != "Spool - Complete" {
		t.Errorf("title = %q", req.title)
	}
	if req.tags != "spool,download,completed" {
		t.Errorf("tags = %q", req.tags)
	}
	if req.priority != "high" {
		t.Errorf("priority = %q", req.priority)
	}
	if req.body != "Download ready: Talk recording\nFile: download_ab12.mp4" {
		t.Errorf("body = %q", req.body)
	}
}

func TestNotifyJobFailedIncludesError(t *testing.T) {
	var requests []recordedRequest
	server := newRecordingServer(t, &requests)

	svc := notifications.NewService(newNtfyConfig(server.URL))
	if err := svc.NotifyJobFailed(context.Background(), "Talk recording", errors.New("boom")); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}

	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	if got, want := requests[0].body, "Download failed: Talk recording\nboom"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if requests[0].title != "Spool - Error" {
		t.Errorf("title = %q", requests[0].title)
	}
}

func TestCompletedAndErrorGates(t *testing.T) {
	var requests []recordedRequest
	server := newRecordingServer(t, &requests)

	cfg := newNtfyConfig(server.URL)
	cfg.Notifications.Completed = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyJobCompleted(context.Background(), "t", "f"); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if err := svc.NotifyJobFailed(context.Background(), "t", errors.New("x")); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("gated notifications still sent %d requests", len(requests))
	}

	// Queued notifications are not gated.
	if err := svc.NotifyJobQueued(context.Background(), "t", "mp3"); err != nil {
		t.Fatalf("NotifyJobQueued: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected queued notification, got %d requests", len(requests))
	}
}

func TestSendReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	svc := notifications.NewService(newNtfyConfig(server.URL))
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}
