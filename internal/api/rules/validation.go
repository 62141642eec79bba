package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/condition"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const (
	maxNameLength    = 200
	minCheckInterval = 10 * time.Second
)

// ParsedCreate holds the typed values extracted from a CreateRequest.
type ParsedCreate struct {
	ConditionType models.ConditionType
	Severity      models.Severity
	CheckInterval time.Duration
	Cooldown      time.Duration
}

// ValidateCreate validates a create request and returns its typed fields.
func ValidateCreate(req *CreateRequest) (*ParsedCreate, error) {
	if req.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace_id is required")
	}
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if req.MetricType == "" {
		return nil, fmt.Errorf("metric_type is required")
	}

	conditionType, ok := models.ParseConditionType(req.ConditionType)
	if !ok {
		return nil, fmt.Errorf("condition_type must be 'threshold', 'change', 'anomaly', or 'pattern'")
	}
	if err := condition.ValidateConfig(conditionType, req.Condition); err != nil {
		return nil, fmt.Errorf("invalid condition: %w", err)
	}

	checkInterval, err := parseInterval(req.CheckInterval, "check_interval")
	if err != nil {
		return nil, err
	}
	if checkInterval < minCheckInterval {
		return nil, fmt.Errorf("check_interval must be at least %s", minCheckInterval)
	}

	cooldown := time.Duration(0)
	if req.Cooldown != "" {
		cooldown, err = parseInterval(req.Cooldown, "cooldown")
		if err != nil {
			return nil, err
		}
	}

	severity := req.Severity
	if severity == "" {
		return nil, fmt.Errorf("severity is required")
	}
	switch severity {
	case "low", "medium", "high", "critical":
	default:
		return nil, fmt.Errorf("severity must be 'low', 'medium', 'high', or 'critical'")
	}

	return &ParsedCreate{
		ConditionType: conditionType,
		Severity:      models.ParseSeverity(severity),
		CheckInterval: checkInterval,
		Cooldown:      cooldown,
	}, nil
}

// ApplyUpdate validates an update request and applies it to the rule.
func ApplyUpdate(rule *models.Rule, req *UpdateRequest) error {
	if req.Name != "" {
		if err := validateName(req.Name); err != nil {
			return err
		}
		rule.Name = strings.TrimSpace(req.Name)
	}
	if req.MetricType != "" {
		rule.MetricType = req.MetricType
	}

	conditionType := rule.ConditionType
	if req.ConditionType != "" {
		ct, ok := models.ParseConditionType(req.ConditionType)
		if !ok {
			return fmt.Errorf("condition_type must be 'threshold', 'change', 'anomaly', or 'pattern'")
		}
		conditionType = ct
	}
	if req.Condition != nil {
		if err := condition.ValidateConfig(conditionType, req.Condition); err != nil {
			return fmt.Errorf("invalid condition: %w", err)
		}
		if err := rule.SetCondition(req.Condition); err != nil {
			return fmt.Errorf("invalid condition config")
		}
	} else if req.ConditionType != "" && conditionType != rule.ConditionType {
		// Changing the type invalidates the stored config.
		cfg, err := rule.ConditionConfig()
		if err != nil {
			return fmt.Errorf("invalid stored condition config")
		}
		if err := condition.ValidateConfig(conditionType, cfg); err != nil {
			return fmt.Errorf("condition config does not match new type: %w", err)
		}
	}
	rule.ConditionType = conditionType

	if req.CheckInterval != "" {
		d, err := parseInterval(req.CheckInterval, "check_interval")
		if err != nil {
			return err
		}
		if d < minCheckInterval {
			return fmt.Errorf("check_interval must be at least %s", minCheckInterval)
		}
		rule.CheckInterval = d
	}
	if req.Cooldown != "" {
		d, err := parseInterval(req.Cooldown, "cooldown")
		if err != nil {
			return err
		}
		rule.Cooldown = d
	}
	if req.Severity != "" {
		switch req.Severity {
		case "low", "medium", "high", "critical":
			rule.Severity = models.ParseSeverity(req.Severity)
		default:
			return fmt.Errorf("severity must be 'low', 'medium', 'high', or 'critical'")
		}
	}
	if req.Notify != nil {
		rule.Notify = req.Notify
	}
	if req.EscalationID != nil {
		rule.EscalationID = *req.EscalationID
	}

	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

func parseInterval(s, field string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
