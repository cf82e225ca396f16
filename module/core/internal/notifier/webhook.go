package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/safetrack/safetrack/module/core/domain"
)

const ChannelWebhook = "webhook"

// WebhookNotifier POSTs the alert as JSON to the target address. The
// per-target timeout comes from the caller's context.
type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier(client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{client: client}
}

func (n *WebhookNotifier) Notify(ctx context.Context, target domain.NotificationTarget, event domain.AlertEvent) error {
	if target.Channel != ChannelWebhook {
		return fmt.Errorf("unsupported channel %q", target.Channel)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Address, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: status %d", target.Address, resp.StatusCode)
	}
	return nil
}
