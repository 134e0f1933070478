package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/go-resty/resty/v2"
)

// Webhook posts every tracker update as JSON to a fixed URL.
type Webhook struct {
	url    string
	client *resty.Client
}

func NewWebhook(webhookURL string) (*Webhook, error) {
	trimmed := strings.TrimSpace(webhookURL)
	if trimmed == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	return &Webhook{
		url:    trimmed,
		client: resty.New().SetTimeout(10 * time.Second),
	}, nil
}

func (w *Webhook) Broadcast(ctx context.Context, msg messaging.UpdateTrackers) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("send tracker webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
