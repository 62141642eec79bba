package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// pagerdutyEventsURL is the PagerDuty Events API v2 endpoint.
const pagerdutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyConfig holds PagerDuty configuration.
type PagerDutyConfig struct {
	// EventsURL overrides the Events API endpoint (used in tests).
	EventsURL string `yaml:"events_url"`
}

// PagerDutyChannel pages on-call responders through the Events API v2.
// The recipient is the integration routing key.
type PagerDutyChannel struct {
	config     PagerDutyConfig
	httpClient *http.Client
}

// NewPagerDutyChannel creates a new PagerDuty channel.
func NewPagerDutyChannel(config PagerDutyConfig) *PagerDutyChannel {
	if config.EventsURL == "" {
		config.EventsURL = pagerdutyEventsURL
	}
	return &PagerDutyChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Name returns "pagerduty".
func (p *PagerDutyChannel) Name() string {
	return "pagerduty"
}

// Timeout bounds a single enqueue call.
func (p *PagerDutyChannel) Timeout() time.Duration {
	return 5 * time.Second
}

// pagerdutyEvent is the Events API v2 payload.
type pagerdutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key,omitempty"`
	Payload     pagerdutyPayload `json:"payload"`
}

type pagerdutyPayload struct {
	Summary       string                 `json:"summary"`
	Source        string                 `json:"source"`
	Severity      string                 `json:"severity"`
	Timestamp     string                 `json:"timestamp"`
	CustomDetails map[string]interface{} `json:"custom_details,omitempty"`
}

// pagerdutySeverity maps alert severity to the Events API enum.
func pagerdutySeverity(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "critical"
	case models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}

// Send enqueues a trigger event using the recipient as routing key.
func (p *PagerDutyChannel) Send(ctx context.Context, n *Notification, recipient string) (string, error) {
	event := pagerdutyEvent{
		RoutingKey:  recipient,
		EventAction: "trigger",
		DedupKey:    n.AlertID,
		Payload: pagerdutyPayload{
			Summary:   truncate(fmt.Sprintf("%s: %s", n.Title, n.Message), 1024),
			Source:    "pulsewatch/" + n.WorkspaceID,
			Severity:  pagerdutySeverity(n.Severity),
			Timestamp: n.TriggeredAt.Format(time.RFC3339),
			CustomDetails: map[string]interface{}{
				"metric_value":    n.MetricValue,
				"threshold_value": n.ThresholdValue,
				"escalated":       n.Escalated,
			},
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.EventsURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("pagerduty error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return fmt.Sprintf("status %d", resp.StatusCode), nil
}

// Close is a no-op for the PagerDuty channel.
func (p *PagerDutyChannel) Close() error {
	return nil
}
