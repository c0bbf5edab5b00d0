package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spool/internal/config"
)

const userAgent = "Spool/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyJobQueued(ctx context.Context, title, kind string) error
	NotifyJobCompleted(ctx context.Context, title, finalFile string) error
	NotifyJobFailed(ctx context.Context, title string, err error) error
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
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		notifyCompleted: cfg.Notifications.Completed,
		notifyErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	notifyCompleted bool
	notifyErrors    bool
}

func (n *ntfyService) NotifyJobQueued(ctx context.Context, title, kind string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "download"
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "mp4"
	}
	data := payload{
		title:   "Spool - Queued",
		message: fmt.Sprintf("Queued %s download: %s", kind, title),
		tags:    []string{"spool", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, title, finalFile string) error {
	if !n.notifyCompleted {
		return nil
	}
	title = strings.TrimSpace(title)
	finalFile = strings.TrimSpace(finalFile)
	message := fmt.Sprintf("Download ready: %s", title)
	if finalFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, finalFile)
	}
	data := payload{
		title:    "Spool - Complete",
		message:  message,
		tags:     []string{"spool", "download", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, title string, err error) error {
	if !n.notifyErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Download failed")
	if title = strings.TrimSpace(title); title != "" {
		builder.WriteString(": ")
		builder.WriteString(title)
	}
	if err != nil {
		builder.WriteString("\n")
		builder.WriteString(strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Spool - Error",
		message:  builder.String(),
		tags:     []string{"spool", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Spool - Test",
		message:  "Notification system test",
		tags:     []string{"spool", "test"},
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

func (noopService) NotifyJobQueued(context.Context, string, string) error      { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, string) error   { return nil }
func (noopService) NotifyJobFailed(context.Context, string, error) error       { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
