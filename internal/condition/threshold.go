package condition

import (
	"context"

	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// ThresholdConfig configures a threshold condition.
type ThresholdConfig struct {
	// Operator is one of >, <, >=, <=, ==, !=.
	Operator string `json:"operator"`
	// Threshold is the comparison value.
	Threshold float64 `json:"threshold"`
}

// ThresholdEvaluator compares the current metric value against a configured
// threshold.
type ThresholdEvaluator struct {
	store metricstore.Store
}

// NewThresholdEvaluator creates a threshold evaluator.
func NewThresholdEvaluator(store metricstore.Store) *ThresholdEvaluator {
	return &ThresholdEvaluator{store: store}
}

// Type returns the threshold condition type.
func (e *ThresholdEvaluator) Type() models.ConditionType {
	return models.ConditionThreshold
}

// Evaluate triggers when the current value satisfies the configured
// comparison. Equality comparisons use a small numeric tolerance.
func (e *ThresholdEvaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	var cfg ThresholdConfig
	if err := decodeConfig(req.Config, &cfg); err != nil {
		return Result{}, err
	}

	value, err := currentValue(ctx, e.store, req)
	if err != nil {
		return Result{}, err
	}

	triggered := compare(value, cfg.Threshold, cfg.Operator)

	return Result{
		Triggered: triggered,
		Context: map[string]interface{}{
			"current_value": value,
			"operator":      cfg.Operator,
			"threshold":     cfg.Threshold,
		},
	}, nil
}
