package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SlackConfig holds Slack webhook configuration.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"` // Slack incoming webhook URL
}

// Validate validates the Slack configuration.
func (c *SlackConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must use HTTPS")
	}
	return nil
}

// SlackChannel sends alert notifications to Slack via incoming webhook.
type SlackChannel struct {
	config     SlackConfig
	httpClient *http.Client
}

// NewSlackChannel creates a new Slack channel.
func NewSlackChannel(config SlackConfig) (*SlackChannel, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}

	return &SlackChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: 3 * time.Second,
		},
	}, nil
}

// Name returns "slack".
func (s *SlackChannel) Name() string {
	return "slack"
}

// Timeout bounds a single webhook post.
func (s *SlackChannel) Timeout() time.Duration {
	return 3 * time.Second
}

// Send posts the notification to the webhook, addressed to the given
// Slack channel name.
func (s *SlackChannel) Send(ctx context.Context, n *Notification, recipient string) (string, error) {
	payload := s.buildPayload(n, recipient)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("slack API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return fmt.Sprintf("status %d", resp.StatusCode), nil
}

// Close is a no-op for the Slack channel.
func (s *SlackChannel) Close() error {
	return nil
}

// slackMessage represents the Slack webhook payload. Detail blocks ride in
// a colored attachment so the sidebar reflects severity.
type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Blocks      []slackBlock      `json:"blocks"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

// slackAttachment wraps blocks with a severity color bar.
type slackAttachment struct {
	Color  string       `json:"color"`
	Blocks []slackBlock `json:"blocks"`
}

// slackBlock represents a Slack Block Kit block.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

// slackText represents text in Slack Block Kit.
type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// buildPayload builds the Slack Block Kit message payload.
func (s *SlackChannel) buildPayload(n *Notification, recipient string) slackMessage {
	emoji := severityEmoji(n.Severity)
	timestamp := n.TriggeredAt.Format("2006-01-02 15:04:05 MST")

	header := fmt.Sprintf("%s PulseWatch Alert: %s", emoji, n.Title)
	if n.Escalated {
		header = fmt.Sprintf("%s PulseWatch Alert (ESCALATED): %s", emoji, n.Title)
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type:  "plain_text",
				Text:  header,
				Emoji: true,
			},
		},
	}

	detail := []slackBlock{
		{
			Type: "section",
			Fields: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Severity:*\n%s %s", emoji, strings.ToUpper(string(n.Severity))),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Time:*\n%s", timestamp),
				},
			},
		},
		{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Message:*\n%s", truncate(n.Message, 2000)),
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Value:*\n%.4g", n.MetricValue),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Threshold:*\n%.4g", n.ThresholdValue),
				},
			},
		},
	}

	return slackMessage{
		Channel: recipient,
		Blocks:  blocks,
		Attachments: []slackAttachment{
			{Color: severityColor(n.Severity), Blocks: detail},
		},
	}
}
