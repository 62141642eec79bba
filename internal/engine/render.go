package engine

import (
	"fmt"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// renderTitle builds the alert title from the rule and its severity.
func renderTitle(rule *models.Rule) string {
	return fmt.Sprintf("[%s] %s", severityLabel(rule.Severity), rule.Name)
}

// renderMessage builds a human-readable alert message from the evaluation
// context, favoring the numbers the evaluator actually used.
func renderMessage(rule *models.Rule, evalCtx map[string]interface{}) string {
	current, hasCurrent := floatFromContext(evalCtx, "current_value")

	switch rule.ConditionType {
	case models.ConditionThreshold:
		threshold, ok := floatFromContext(evalCtx, "threshold")
		operator, _ := evalCtx["operator"].(string)
		if hasCurrent && ok {
			return fmt.Sprintf("%s is %.2f (%s %.2f)", rule.MetricType, current, operator, threshold)
		}
	case models.ConditionChange:
		delta, ok := floatFromContext(evalCtx, "delta")
		comparison, _ := evalCtx["comparison"].(string)
		if hasCurrent && ok {
			return fmt.Sprintf("%s changed by %.2f vs %s ago (now %.2f)", rule.MetricType, delta, comparison, current)
		}
	case models.ConditionAnomaly:
		zscore, ok := floatFromContext(evalCtx, "z_score")
		if hasCurrent && ok {
			return fmt.Sprintf("%s is anomalous: %.2f (z-score %.2f)", rule.MetricType, current, zscore)
		}
	case models.ConditionPattern:
		shape, _ := evalCtx["shape"].(string)
		if shape != "" {
			return fmt.Sprintf("%s shows a %s pattern", rule.MetricType, shape)
		}
	}

	if hasCurrent {
		return fmt.Sprintf("%s condition met (current value %.2f)", rule.MetricType, current)
	}
	return fmt.Sprintf("%s condition met", rule.MetricType)
}

func severityLabel(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "CRITICAL"
	case models.SeverityHigh:
		return "HIGH"
	case models.SeverityMedium:
		return "MEDIUM"
	case models.SeverityLow:
		return "LOW"
	default:
		return "ALERT"
	}
}

// floatFromContext reads a numeric context value, tolerating the float64
// representation JSON round-trips produce.
func floatFromContext(ctx map[string]interface{}, key string) (float64, bool) {
	v, ok := ctx[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
