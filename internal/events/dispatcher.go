package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ValidationPayload is the data field of a validation lifecycle event.
type ValidationPayload struct {
	SessionID  string  `json:"session_id"`
	Sheet      string  `json:"sheet"`
	RowCount   int     `json:"row_count,omitempty"`
	Grade      string  `json:"grade,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// Dispatcher POSTs CloudEvents envelopes to a configured webhook URL.
// Delivery failures are logged and swallowed: a webhook subscriber
// being down must never fail a validation run.
type Dispatcher struct {
	builder *Builder
	client  *http.Client

	mu      sync.RWMutex
	webhookURL string
	enabled    bool
}

// NewDispatcher constructs a Dispatcher. webhookURL may be empty, in
// which case Dispatch is a no-op.
func NewDispatcher(builder *Builder, webhookURL string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		builder:    builder,
		client:     &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
	}
}

// SetWebhookURL updates the destination at runtime, e.g. from a
// POST /webhook/generic registration call.
func (d *Dispatcher) SetWebhookURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.webhookURL = url
	d.enabled = url != ""
}

// Dispatch builds and delivers one envelope; errors are logged, not
// returned, so callers can fire-and-forget.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType, correlationID string, data any) {
	d.mu.RLock()
	url := d.webhookURL
	enabled := d.enabled
	d.mu.RUnlock()
	if !enabled {
		return
	}

	envelope, err := d.builder.New(eventType, correlationID, data)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to build cloudevents envelope")
		return
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal cloudevents envelope")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/cloudevents+json")

	resp, err := d.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Str("url", url).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Str("event_type", eventType).Int("status", resp.StatusCode).Msg("webhook subscriber returned non-success status")
	}
}
