package condition

import (
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// validOperators are the comparison operators accepted by threshold configs.
var validOperators = map[string]bool{
	">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true,
}

// ValidateConfig validates a condition configuration for the given type.
// It is a pure function applied when a rule is created or updated, never on
// the evaluation hot path.
func ValidateConfig(conditionType models.ConditionType, cfg map[string]interface{}) error {
	switch conditionType {
	case models.ConditionThreshold:
		return validateThreshold(cfg)
	case models.ConditionChange:
		return validateChange(cfg)
	case models.ConditionAnomaly:
		return validateAnomaly(cfg)
	case models.ConditionPattern:
		return validatePattern(cfg)
	default:
		return fmt.Errorf("unknown condition type %q", conditionType)
	}
}

func validateThreshold(cfg map[string]interface{}) error {
	var c ThresholdConfig
	if err := decodeConfig(cfg, &c); err != nil {
		return err
	}
	if c.Operator == "" {
		return fmt.Errorf("operator is required")
	}
	if !validOperators[c.Operator] {
		return fmt.Errorf("invalid operator %q", c.Operator)
	}
	if _, ok := cfg["threshold"]; !ok {
		return fmt.Errorf("threshold is required")
	}
	return nil
}

func validateChange(cfg map[string]interface{}) error {
	var c ChangeConfig
	if err := decodeConfig(cfg, &c); err != nil {
		return err
	}
	if _, ok := comparisonOffset(c.Comparison); !ok {
		return fmt.Errorf("comparison must be 'hour', 'day', or 'week'")
	}
	if c.Mode != "percent" && c.Mode != "absolute" {
		return fmt.Errorf("mode must be 'percent' or 'absolute'")
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive")
	}
	return nil
}

func validateAnomaly(cfg map[string]interface{}) error {
	var c AnomalyConfig
	if err := decodeConfig(cfg, &c); err != nil {
		return err
	}
	if c.Window == "" {
		return fmt.Errorf("window is required")
	}
	if _, err := time.ParseDuration(c.Window); err != nil {
		return fmt.Errorf("invalid window %q: %w", c.Window, err)
	}
	if c.Sensitivity < 1.0 || c.Sensitivity > 5.0 {
		return fmt.Errorf("sensitivity must be between 1.0 and 5.0")
	}
	return nil
}

func validatePattern(cfg map[string]interface{}) error {
	var c PatternConfig
	if err := decodeConfig(cfg, &c); err != nil {
		return err
	}
	if c.Window == "" {
		return fmt.Errorf("window is required")
	}
	if _, err := time.ParseDuration(c.Window); err != nil {
		return fmt.Errorf("invalid window %q: %w", c.Window, err)
	}
	switch c.Shape {
	case "increase", "decrease", "spike", "flatline":
	default:
		return fmt.Errorf("shape must be 'increase', 'decrease', 'spike', or 'flatline'")
	}
	if c.MinRun < 0 {
		return fmt.Errorf("min_run must not be negative")
	}
	return nil
}
