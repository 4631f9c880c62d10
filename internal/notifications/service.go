package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidqueue/internal/config"
)

const userAgent = "VidQueue-Go/0.1.0"

// Event names a queue milestone worth telling a human about.
type Event string

const (
	EventJobStarted   Event = "job_started"
	EventQueueDrained Event = "queue_drained"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event details. Keys are event specific.
type Payload map[string]string

// Service defines the notification surface exposed to the queue and daemon.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
		enabled: map[Event]bool{
			EventJobStarted:   cfg.Notifications.JobStarted,
			EventQueueDrained: cfg.Notifications.QueueDrained,
			EventJobFailed:    cfg.Notifications.Errors,
			EventTest:         true,
		},
		titler: cases.Title(language.Und, cases.NoLower),
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
	enabled  map[Event]bool
	titler   cases.Caser
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobStarted:
		return message{
			title: "VidQueue - Processing",
			body:  fmt.Sprintf("🎞️ Processing %s", n.displayName(payload["name"])),
			tags:  []string{"vidqueue", "job", "started"},
		}, true
	case EventQueueDrained:
		body := "✅ Queue drained"
		if count := strings.TrimSpace(payload["count"]); count != "" {
			body = fmt.Sprintf("✅ Queue drained: %s jobs finished", count)
		}
		return message{
			title: "VidQueue - Queue Drained",
			body:  body,
			tags:  []string{"vidqueue", "queue", "drained"},
		}, true
	case EventJobFailed:
		var b strings.Builder
		b.WriteString("❌ Failed: ")
		b.WriteString(n.displayName(payload["name"]))
		if step := strings.TrimSpace(payload["step"]); step != "" {
			b.WriteString(" at ")
			b.WriteString(step)
		}
		if reason := strings.TrimSpace(payload["error"]); reason != "" {
			b.WriteString("\n")
			b.WriteString(reason)
		}
		return message{
			title:    "VidQueue - Job Failed",
			body:     b.String(),
			tags:     []string{"vidqueue", "job", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "VidQueue - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"vidqueue", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

// displayName turns a source file name into a readable title.
func (n *ntfyService) displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	name = strings.NewReplacer("_", " ", ".", " ").Replace(name)
	return n.titler.String(name)
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
