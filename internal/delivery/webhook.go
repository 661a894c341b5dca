package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"confide/internal/logger"
	"confide/internal/notification"
)

type webhookPayload struct {
	ID       string                `json:"id"`
	UserID   string                `json:"userId"`
	Type     string                `json:"type"`
	Title    string                `json:"title"`
	Body     string                `json:"body"`
	Metadata notification.Metadata `json:"metadata"`
}

// WebhookDeliverer POSTs the notification payload to a fixed endpoint.
// Any non-2xx response is a failed attempt.
type WebhookDeliverer struct {
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

func NewWebhookDeliverer(endpoint string, timeout time.Duration, log logger.Logger) *WebhookDeliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDeliverer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, job *notification.Job) error {
	payload := webhookPayload{
		ID:       job.ID,
		UserID:   job.UserID,
		Type:     string(job.Type),
		Title:    job.Title,
		Body:     job.Body,
		Metadata: job.Metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
