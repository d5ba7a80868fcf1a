package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/rs/zerolog"
)

// SignatureHeader carries the HMAC-SHA256 signature of a webhook body.
const SignatureHeader = "X-Modlicense-Signature"

// WebhookPayload represents the payload sent to generic webhook endpoints.
type WebhookPayload struct {
	EventType string      `json:"event_type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// WebhookConfig configures the generic webhook sink.
type WebhookConfig struct {
	URL        string
	Secret     string
	MaxRetries int
}

// WebhookSender sends events to a generic webhook with HMAC signing and retry.
type WebhookSender struct {
	config  WebhookConfig
	client  *http.Client
	logger  zerolog.Logger
	backoff func(attempt int) time.Duration
}

// NewWebhookSender creates a new webhook sender. The URL should already have
// passed ValidateWebhookURL.
func NewWebhookSender(cfg WebhookConfig, client *http.Client, logger zerolog.Logger) (*WebhookSender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookSender{
		config: cfg,
		client: client,
		logger: logger.With().Str("component", "webhook_sender").Logger(),
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
		},
	}, nil
}

// Name identifies the sink in logs.
func (w *WebhookSender) Name() string { return "webhook" }

// NotifyTokensIssued posts the event wrapped in a WebhookPayload.
func (w *WebhookSender) NotifyTokensIssued(ctx context.Context, event models.TokensIssuedEvent) error {
	return w.Send(ctx, WebhookPayload{
		EventType: "tokens_issued",
		Timestamp: event.IssuedAt.UTC(),
		Data:      event,
	})
}

// Send posts a payload with retry and exponential backoff.
func (w *WebhookSender) Send(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoff(attempt)):
			}
			w.logger.Debug().
				Int("attempt", attempt+1).
				Msg("retrying webhook")
		}

		lastErr = w.doSend(ctx, body)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", w.config.MaxRetries, lastErr)
}

// doSend performs a single webhook HTTP request.
func (w *WebhookSender) doSend(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if w.config.Secret != "" {
		req.Header.Set(SignatureHeader, computeHMAC(body, w.config.Secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.logger.Debug().
			Int("status", resp.StatusCode).
			Msg("webhook notification sent")
		return nil
	}

	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}

// computeHMAC computes an HMAC-SHA256 signature for the given payload.
func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
