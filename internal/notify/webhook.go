package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WebhookHandler POSTs the trigger event as JSON to the task's Link field,
// which is interpreted as the target URL when NotifyChannel is "webhook".
type WebhookHandler struct {
	client *http.Client
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler() *WebhookHandler {
	return &WebhookHandler{client: &http.Client{Timeout: 15 * time.Second}}
}

func (h *WebhookHandler) Channel() string { return "webhook" }

func (h *WebhookHandler) Handle(ctx context.Context, event TaskEvent) error {
	ctx, span := otel.Tracer("notify").Start(ctx, "handler.webhook")
	defer span.End()

	url := event.Task.Link
	if url == "" {
		err := errors.New("webhook channel requires a non-empty task link")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing link")
		return err
	}
	span.SetAttributes(attribute.String("webhook.url", url))

	body, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal event failed")
		return fmt.Errorf("marshal trigger event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request failed")
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http call failed")
		return fmt.Errorf("webhook call to %s: %w", url, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status code")
		return err
	}
	return nil
}
