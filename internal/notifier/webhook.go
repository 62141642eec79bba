package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookConfig holds generic webhook configuration.
type WebhookConfig struct {
	// Secret, when set, signs each payload with an HMAC-SHA256 header.
	Secret string `yaml:"secret"`
	// Headers are extra headers added to every request.
	Headers map[string]string `yaml:"headers"`
}

// WebhookChannel POSTs the notification payload as JSON to recipient URLs.
type WebhookChannel struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewWebhookChannel creates a new generic webhook channel.
func NewWebhookChannel(config WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Name returns "webhook".
func (w *WebhookChannel) Name() string {
	return "webhook"
}

// Timeout bounds a single webhook post.
func (w *WebhookChannel) Timeout() time.Duration {
	return 5 * time.Second
}

// Send posts the notification to the recipient URL.
func (w *WebhookChannel) Send(ctx context.Context, n *Notification, recipient string) (string, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}
	if w.config.Secret != "" {
		req.Header.Set("X-PulseWatch-Signature", sign(payload, w.config.Secret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return fmt.Sprintf("status %d", resp.StatusCode), nil
}

// Close is a no-op for the webhook channel.
func (w *WebhookChannel) Close() error {
	return nil
}

// sign computes the hex HMAC-SHA256 of the payload.
func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
