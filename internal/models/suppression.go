package models

import "time"

// SuppressionKind selects what a suppression window matches on.
type SuppressionKind string

const (
	SuppressByRule     SuppressionKind = "rule"
	SuppressByMetric   SuppressionKind = "metric"
	SuppressBySeverity SuppressionKind = "severity"
)

// Suppression is a time-bounded window that silences matching rules.
// It is read-only from the engine's perspective during evaluation.
type Suppression struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Kind        SuppressionKind `json:"kind"`
	Value       string          `json:"value"` // rule id, metric type, or severity
	Reason      string          `json:"reason,omitempty"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ActiveAt reports whether the window is active at the given time.
func (s *Suppression) ActiveAt(now time.Time) bool {
	return !now.Before(s.StartsAt) && now.Before(s.EndsAt)
}

// Matches reports whether the window applies to the given rule.
func (s *Suppression) Matches(rule *Rule) bool {
	switch s.Kind {
	case SuppressByRule:
		return s.Value == rule.ID
	case SuppressByMetric:
		return s.Value == rule.MetricType
	case SuppressBySeverity:
		return s.Value == string(rule.Severity)
	default:
		return false
	}
}

// ParseSuppressionKind converts a string to SuppressionKind.
func ParseSuppressionKind(s string) (SuppressionKind, bool) {
	switch s {
	case "rule":
		return SuppressByRule, true
	case "metric":
		return SuppressByMetric, true
	case "severity":
		return SuppressBySeverity, true
	default:
		return "", false
	}
}
