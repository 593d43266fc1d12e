package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

// alertTypePCDuration is the alert_type field delivered to webhook receivers.
const alertTypePCDuration = "pc_duration_exceeded"

// WebhookSink posts alert decisions to a webhook endpoint as JSON.
type WebhookSink struct {
	url    string
	client *http.Client
	clock  Clock
}

// WebhookOption configures the webhook sink.
type WebhookOption func(*WebhookSink)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSink) {
		if client != nil {
			s.client = client
		}
	}
}

// WithWebhookClock overrides the default clock.
func WithWebhookClock(clock Clock) WebhookOption {
	return func(s *WebhookSink) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewWebhookSink constructs a webhook sink.
func NewWebhookSink(url string, opts ...WebhookOption) (*WebhookSink, error) {
	if url == "" {
		return nil, errors.New("webhook sink: empty url")
	}
	sink := &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

type webhookPayload struct {
	AlertType string `json:"alert_type"`
	Timestamp string `json:"timestamp"`
	analysis.AlertDecision
}

// Name implements Sink.
func (s *WebhookSink) Name() string { return "webhook" }

// Deliver implements Sink.
func (s *WebhookSink) Deliver(ctx context.Context, decision analysis.AlertDecision) error {
	if s == nil || s.url == "" {
		return errors.New("webhook sink: empty url")
	}
	payload := webhookPayload{
		AlertType:     alertTypePCDuration,
		Timestamp:     s.clock.Now().UTC().Format(time.RFC3339),
		AlertDecision: decision,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sink: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
