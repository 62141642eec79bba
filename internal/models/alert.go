package models

import (
	"encoding/json"
	"time"
)

// Alert is a single firing instance of a rule. Alerts are never deleted,
// only terminally marked resolved.
type Alert struct {
	ID               string     `json:"id"`
	RuleID           string     `json:"rule_id"`
	WorkspaceID      string     `json:"workspace_id"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	Severity         Severity   `json:"severity"`
	MetricType       string     `json:"metric_type"`
	MetricValue      float64    `json:"metric_value"`
	ThresholdValue   float64    `json:"threshold_value"`
	TriggeredAt      time.Time  `json:"triggered_at"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy   string     `json:"acknowledged_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy       string     `json:"resolved_by,omitempty"`
	ResolutionNotes  string     `json:"resolution_notes,omitempty"`
	Escalated        bool       `json:"escalated"`
	EscalationLevel  int        `json:"escalation_level"`
	EscalationID     string     `json:"escalation_id,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
	Context          string     `json:"context,omitempty"` // JSON-encoded evaluation context
	CreatedAt        time.Time  `json:"created_at"`
}

// IsAcknowledged reports whether the alert has been acknowledged.
func (a *Alert) IsAcknowledged() bool {
	return a.AcknowledgedAt != nil
}

// IsResolved reports whether the alert has been resolved.
func (a *Alert) IsResolved() bool {
	return a.ResolvedAt != nil
}

// SetContext sets the evaluation context from a structured value.
func (a *Alert) SetContext(ctx map[string]interface{}) error {
	data, err := json.Marshal(ctx)
	if err != nil {
		return err
	}
	a.Context = string(data)
	return nil
}

// GetContext decodes the evaluation context.
func (a *Alert) GetContext() (map[string]interface{}, error) {
	if a.Context == "" {
		return map[string]interface{}{}, nil
	}
	var ctx map[string]interface{}
	if err := json.Unmarshal([]byte(a.Context), &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}
