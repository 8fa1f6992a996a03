package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polyscribe/internal/config"
)

const userAgent = "Polyscribe-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventWatchStarted           Event = "watch_started"
	EventTranscriptionCompleted Event = "transcription_completed"
	EventTranscriptionFailed    Event = "transcription_failed"
	EventTest                   Event = "test"
)

// Payload carries the display values for an event.
type Payload map[string]string

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
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

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := buildMessage(event, payload)
	if !ok {
		return fmt.Errorf("unsupported notification event %q", event)
	}
	return n.send(ctx, msg)
}

func buildMessage(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }
	switch event {
	case EventWatchStarted:
		return message{
			title: "Polyscribe - Watching",
			body:  fmt.Sprintf("Watching %s for new recordings", get("dir")),
			tags:  []string{"polyscribe", "watch", "started"},
		}, true
	case EventTranscriptionCompleted:
		lang := get("language")
		if lang == "" {
			lang = "unknown"
		}
		body := fmt.Sprintf("Transcribed %s (%s)", get("fileName"), lang)
		if strategy := get("strategy"); strategy != "" {
			body = fmt.Sprintf("%s via %s", body, strategy)
		}
		if preview := get("preview"); preview != "" {
			body = fmt.Sprintf("%s\n%s", body, preview)
		}
		msg := message{
			title: "Polyscribe - Transcribed",
			body:  body,
			tags:  []string{"polyscribe", "transcribe", "completed"},
		}
		if fault := get("fault"); fault != "" && fault != "none" {
			msg.title = "Polyscribe - Transcribed (degraded)"
			msg.body = fmt.Sprintf("%s\nFault: %s", msg.body, fault)
			msg.tags = []string{"polyscribe", "transcribe", "degraded"}
		}
		return msg, true
	case EventTranscriptionFailed:
		errText := get("error")
		if errText == "" {
			errText = "unknown"
		}
		return message{
			title:    "Polyscribe - Error",
			body:     fmt.Sprintf("Failed to transcribe %s: %s", get("fileName"), errText),
			tags:     []string{"polyscribe", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Polyscribe - Test",
			body:     "Notification system test",
			tags:     []string{"polyscribe", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
