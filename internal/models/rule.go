// Package models defines domain models for PulseWatch.
package models

import (
	"encoding/json"
	"time"
)

// ConditionType represents the type of rule condition.
type ConditionType string

const (
	ConditionThreshold ConditionType = "threshold"
	ConditionChange    ConditionType = "change"
	ConditionAnomaly   ConditionType = "anomaly"
	ConditionPattern   ConditionType = "pattern"
)

// Severity represents alert severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rule represents a persisted monitoring rule.
type Rule struct {
	ID              string        `json:"id"`
	WorkspaceID     string        `json:"workspace_id"`
	Name            string        `json:"name"`
	MetricType      string        `json:"metric_type"`
	ConditionType   ConditionType `json:"condition_type"`
	Condition       string        `json:"condition"` // JSON-encoded condition config
	CheckInterval   time.Duration `json:"check_interval"`
	Cooldown        time.Duration `json:"cooldown"`
	Severity        Severity      `json:"severity"`
	Notify          []string      `json:"notify"`
	EscalationID    string        `json:"escalation_id,omitempty"`
	Enabled         bool          `json:"enabled"`
	LastEvaluatedAt *time.Time    `json:"last_evaluated_at,omitempty"`
	LastTriggeredAt *time.Time    `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewRule creates a new Rule with initialized timestamps.
func NewRule(workspaceID, name, metricType string, conditionType ConditionType, severity Severity) *Rule {
	now := time.Now()
	return &Rule{
		WorkspaceID:   workspaceID,
		Name:          name,
		MetricType:    metricType,
		ConditionType: conditionType,
		Severity:      severity,
		Enabled:       true,
		Notify:        []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetCondition sets the condition config from a structured value.
func (r *Rule) SetCondition(condition interface{}) error {
	data, err := json.Marshal(condition)
	if err != nil {
		return err
	}
	r.Condition = string(data)
	return nil
}

// GetCondition unmarshals the condition config into the provided target.
func (r *Rule) GetCondition(target interface{}) error {
	return json.Unmarshal([]byte(r.Condition), target)
}

// ConditionConfig decodes the condition config as a generic map.
func (r *Rule) ConditionConfig() (map[string]interface{}, error) {
	if r.Condition == "" {
		return map[string]interface{}{}, nil
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(r.Condition), &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DueAt reports whether the rule is due for re-evaluation at now.
func (r *Rule) DueAt(now time.Time) bool {
	if r.LastEvaluatedAt == nil {
		return true
	}
	return now.Sub(*r.LastEvaluatedAt) >= r.CheckInterval
}

// ParseConditionType converts a string to ConditionType.
func ParseConditionType(s string) (ConditionType, bool) {
	switch s {
	case "threshold":
		return ConditionThreshold, true
	case "change":
		return ConditionChange, true
	case "anomaly":
		return ConditionAnomaly, true
	case "pattern":
		return ConditionPattern, true
	default:
		return "", false
	}
}

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}
