package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/go-resty/resty/v2"
)

// WebhookRequest is the JSON body posted to a webhook.
type WebhookRequest struct {
	Action    string            `json:"action"`
	Variables map[string]string `json:"variables"`
}

// Webhook invokes actions by POSTing JSON to an HTTP endpoint.
//
// 2xx responses carry {"outcome": ..., "variables": {...}}; 202 Accepted
// means the result will arrive later as an action callback. Retries are
// left to the engine, so the client never retries on its own.
type Webhook struct {
	url    string
	client *resty.Client
}

// WebhookOption configures the Webhook provider.
type WebhookOption func(*Webhook)

// WithHeaders adds headers to every request (e.g. Authorization).
func WithHeaders(headers map[string]string) WebhookOption {
	return func(w *Webhook) {
		w.client.SetHeaders(headers)
	}
}

// WithTimeout sets the HTTP client timeout (the engine's action timeout
// still applies on top).
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.client.SetTimeout(d)
	}
}

// WithTransport sets the HTTP transport (custom TLS, proxies).
func WithTransport(rt http.RoundTripper) WebhookOption {
	return func(w *Webhook) {
		w.client.SetTransport(rt)
	}
}

// NewWebhook creates a provider posting to url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:    url,
		client: resty.New().SetRetryCount(0),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Invoke posts the action and its variables.
func (w *Webhook) Invoke(ctx context.Context, action string, vars map[string]string) (domain.ActionResult, error) {
	response := map[string]any{}
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(WebhookRequest{Action: action, Variables: vars}).
		SetResult(&response).
		Post(w.url)
	if err != nil {
		return domain.ActionResult{}, fmt.Errorf("webhook %s request failed: %w", action, err)
	}

	switch {
	case resp.StatusCode() == http.StatusAccepted:
		return domain.ActionResult{}, ports.ErrDeferred
	case resp.StatusCode() == http.StatusNotFound:
		return domain.ActionResult{}, fmt.Errorf("%w: webhook %s answered 404", ports.ErrUnknownAction, action)
	case resp.IsError():
		return domain.ActionResult{}, fmt.Errorf("webhook %s answered %s", action, resp.Status())
	}
	return DecodeResult(response)
}
