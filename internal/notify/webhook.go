package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WebhookNotifier POSTs each event as JSON to a fixed URL.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	headers map[string]string
}

// NewWebhookNotifier creates a webhook notifier. A nil client uses
// http.DefaultClient; per-call deadlines come from the dispatcher context.
func NewWebhookNotifier(url string, client *http.Client, headers map[string]string) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{url: url, client: client, headers: headers}
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Interview-Event", string(e.Type))
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{URL: n.url, StatusCode: resp.StatusCode, Event: e.Type}
	}
	return nil
}
