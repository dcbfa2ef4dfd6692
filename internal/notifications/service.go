package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trackpull/internal/config"
)

const userAgent = "trackpull/0.1"

// BatchSummary is the subset of a batch report worth notifying about.
type BatchSummary struct {
	Tracks     int
	Complete   int
	Redirected int
	Failed     int
	Cancelled  int
	Duration   time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyBatchStarted(ctx context.Context, tracks, bound int) error
	NotifyBatchCompleted(ctx context.Context, summary BatchSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
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

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, tracks, bound int) error {
	return n.send(ctx, payload{
		title:   "trackpull - Batch Started",
		message: fmt.Sprintf("Processing %d tracks, %d at a time", tracks, bound),
		tags:    []string{"trackpull", "batch", "started"},
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, s BatchSummary) error {
	duration := s.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	delivered := s.Complete + s.Redirected

	data := payload{
		title:   "trackpull - Batch Complete",
		message: fmt.Sprintf("%d of %d tracks delivered in %s", delivered, s.Tracks, duration),
		tags:    []string{"trackpull", "batch", "completed"},
	}
	switch {
	case s.Cancelled > 0:
		data.title = "trackpull - Batch Cancelled"
		data.message = fmt.Sprintf("%s; %d cancelled", data.message, s.Cancelled)
		data.tags = []string{"trackpull", "batch", "cancelled"}
	case s.Failed > 0:
		data.title = "trackpull - Batch Complete (with errors)"
		data.message = fmt.Sprintf("%s; %d failed", data.message, s.Failed)
	}
	if s.Redirected > 0 {
		data.message = fmt.Sprintf("%s\n%d delivered via hosted converter", data.message, s.Redirected)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Error())
	}
	return n.send(ctx, payload{
		title:    "trackpull - Error",
		message:  builder.String(),
		tags:     []string{"trackpull", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "trackpull - Test",
		message:  "Notification system test",
		tags:     []string{"trackpull", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
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

func (noopService) NotifyBatchStarted(context.Context, int, int) error       { return nil }
func (noopService) NotifyBatchCompleted(context.Context, BatchSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
