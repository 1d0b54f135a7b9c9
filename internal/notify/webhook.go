package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"umbrella/internal/config"
	"umbrella/internal/external"
	"umbrella/internal/types"
)

// maxResponseBodyRead limits how much of a webhook response body is read
// for error diagnostics.
const maxResponseBodyRead = 4096

// webhookPayload is the JSON body POSTed to the configured webhook.
type webhookPayload struct {
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	FiredAt time.Time `json:"fired_at"`
}

// WebhookChannel delivers reminder content to a configured webhook URL via
// HTTP POST. It is the worker-side delivery channel; the endpoint is
// typically a chat or push-notification bridge.
type WebhookChannel struct {
	base   *external.BaseClient
	url    string
	logger *slog.Logger
}

// NewWebhookChannel creates a WebhookChannel from the reminder
// configuration.
func NewWebhookChannel(cfg config.ReminderConfig, logger *slog.Logger) *WebhookChannel {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &WebhookChannel{
		base:   external.NewBaseClient(httpClient, "reminder-webhook", cfg.UserAgent),
		url:    cfg.WebhookURL,
		logger: logger,
	}
}

// NewWebhookChannelWithBase creates a WebhookChannel with a caller-supplied
// base client. This constructor exists for testing.
func NewWebhookChannelWithBase(base *external.BaseClient, url string, logger *slog.Logger) *WebhookChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookChannel{base: base, url: url, logger: logger}
}

// Deliver POSTs the reminder content to the webhook. A non-2xx response is
// an error; the caller decides whether to retry via SQS redelivery.
func (c *WebhookChannel) Deliver(ctx context.Context, msg types.ReminderMessage) error {
	if c.url == "" {
		return types.NewAppError(
			types.ErrCodeInternalScheduler,
			"reminder webhook URL is not configured",
			nil,
		)
	}

	payload, err := json.Marshal(webhookPayload{
		Title:   msg.Content.Title,
		Body:    msg.Content.Body,
		FiredAt: msg.FiredAt,
	})
	if err != nil {
		return fmt.Errorf("webhook channel: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook channel: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))
		return types.NewAppError(
			types.ErrCodeUpstreamProvider,
			fmt.Sprintf("webhook endpoint returned %d", resp.StatusCode),
			fmt.Errorf("endpoint said: %s", string(raw)),
		)
	}

	c.logger.InfoContext(ctx, "reminder delivered",
		"message_id", msg.MessageID,
		"status", resp.StatusCode,
	)
	return nil
}
