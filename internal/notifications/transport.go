package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lllllllleong/documentingest/internal/gcp"
)

const userAgent = "DocumentIngest-Go/0.1.0"

// Message is one notification as the transport sees it.
type Message struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
}

// Notifier delivers a message to the configured destination.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NewNotifier builds an ntfy transport for topic. An empty topic yields a
// notifier that drops every message.
func NewNotifier(topic string, timeout time.Duration) Notifier {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return noopNotifier{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyNotifier{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// LoadNotifier reads NTFY_TOPIC_URL and NTFY_REQUEST_TIMEOUT.
func LoadNotifier() (Notifier, error) {
	timeout, err := gcp.GetEnvDuration("NTFY_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	return NewNotifier(gcp.GetEnv("NTFY_TOPIC_URL", ""), timeout), nil
}

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyNotifier) Send(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" && msg.Priority != "default" {
		req.Header.Set("Priority", msg.Priority)
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

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, Message) error { return nil }
