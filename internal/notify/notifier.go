package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/007AGENT57/Spender-backend/internal/metrics"
)

// Notifier is the outbound operator channel. All methods are best-effort:
// callers log failures and move on, a dead chat webhook must never be
// mistaken for a verification or execution failure.
type Notifier interface {
	// Notify delivers a plain status message.
	Notify(ctx context.Context, text string) error
	// NotifyWithConfirmation delivers a message with an actionable confirm
	// affordance carrying the opaque reference.
	NotifyWithConfirmation(ctx context.Context, text, reference string) error
	// Acknowledge replies to a confirmation event. eventID is the reply
	// address handed over by the gateway with the inbound event.
	Acknowledge(ctx context.Context, eventID, text string) error
}

// SlackNotifier posts to a Slack incoming webhook and replies to interaction
// response URLs.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, text string) error {
	payload := map[string]interface{}{"text": text}
	if err := s.post(ctx, s.webhookURL, payload); err != nil {
		metrics.NotificationsFailedTotal.WithLabelValues("notify").Inc()
		return err
	}
	return nil
}

func (s *SlackNotifier) NotifyWithConfirmation(ctx context.Context, text, reference string) error {
	payload := map[string]interface{}{
		"text": text,
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": text},
			},
			{
				"type": "actions",
				"elements": []map[string]interface{}{
					{
						"type":      "button",
						"style":     "primary",
						"action_id": "confirm_transfer",
						"text":      map[string]string{"type": "plain_text", "text": "Confirm transfer"},
						"value":     reference,
					},
				},
			},
		},
	}
	if err := s.post(ctx, s.webhookURL, payload); err != nil {
		metrics.NotificationsFailedTotal.WithLabelValues("confirm").Inc()
		return err
	}
	return nil
}

func (s *SlackNotifier) Acknowledge(ctx context.Context, eventID, text string) error {
	u, err := url.Parse(eventID)
	if err != nil || u.Scheme != "https" {
		metrics.NotificationsFailedTotal.WithLabelValues("acknowledge").Inc()
		return fmt.Errorf("acknowledge: bad response url")
	}
	payload := map[string]interface{}{
		"text":             text,
		"replace_original": false,
	}
	if err := s.post(ctx, eventID, payload); err != nil {
		metrics.NotificationsFailedTotal.WithLabelValues("acknowledge").Inc()
		return err
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, target string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification status %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier discards everything; used when no webhook is configured.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) Notify(context.Context, string) error                   { return nil }
func (NopNotifier) NotifyWithConfirmation(context.Context, string, string) error { return nil }
func (NopNotifier) Acknowledge(context.Context, string, string) error      { return nil }
