package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SMSConfig holds SMS gateway configuration.
type SMSConfig struct {
	APIURL string `yaml:"api_url"` // gateway endpoint
	APIKey string `yaml:"api_key"` // bearer token
	From   string `yaml:"from"`    // sender id
}

// Validate validates the SMS configuration.
func (c *SMSConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}

// SMSChannel sends short alert notifications through an HTTP SMS gateway.
type SMSChannel struct {
	config     SMSConfig
	httpClient *http.Client
}

// NewSMSChannel creates a new SMS channel.
func NewSMSChannel(config SMSConfig) (*SMSChannel, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sms config: %w", err)
	}

	return &SMSChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: 4 * time.Second,
		},
	}, nil
}

// Name returns "sms".
func (s *SMSChannel) Name() string {
	return "sms"
}

// Timeout bounds a single gateway call.
func (s *SMSChannel) Timeout() time.Duration {
	return 4 * time.Second
}

// smsRequest is the gateway request payload.
type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

// Send sends a compact single-message rendering to the recipient number.
func (s *SMSChannel) Send(ctx context.Context, n *Notification, recipient string) (string, error) {
	body := fmt.Sprintf("%s %s: %s (value %.4g, threshold %.4g)",
		severityTag(n.Severity), n.Title, truncate(n.Message, 100),
		n.MetricValue, n.ThresholdValue)

	payload, err := json.Marshal(smsRequest{To: recipient, From: s.config.From, Body: body})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("sms gateway error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return fmt.Sprintf("status %d", resp.StatusCode), nil
}

// Close is a no-op for the SMS channel.
func (s *SMSChannel) Close() error {
	return nil
}
