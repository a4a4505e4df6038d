// Package notify defines the uniform outbound notification contract shared
// by every vendor adapter (email marketing, CRM, messaging, custom webhooks).
// The engine only depends on this narrow contract, never on a provider's
// request or response shape.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Result is the provider-agnostic outcome of one delivery.
type Result struct {
	ProviderID string
}

// Notifier sends one message to one recipient on a specific channel.
type Notifier interface {
	// Channel names the adapter, e.g. "webhook", "email", "whatsapp".
	Channel() string
	// Send delivers messageOrTemplate to the recipient. Implementations
	// must honor context cancellation; retries are the dispatcher's job.
	Send(ctx context.Context, recipient, messageOrTemplate string, metadata map[string]string) (Result, error)
}

// WebhookNotifier delivers JSON payloads to merchant-configured webhook URLs.
// The recipient is the destination URL.
type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier(client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{client: client}
}

func (n *WebhookNotifier) Channel() string { return "webhook" }

func (n *WebhookNotifier) Send(ctx context.Context, recipient, message string, metadata map[string]string) (Result, error) {
	body, err := json.Marshal(map[string]any{
		"message":  message,
		"metadata": metadata,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return Result{ProviderID: resp.Header.Get("X-Request-Id")}, nil
}
