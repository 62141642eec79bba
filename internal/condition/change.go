package condition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// baselineTolerance bounds how far from the nominal comparison instant a
// baseline sample may be taken.
const baselineTolerance = 30 * time.Minute

// ChangeConfig configures a change condition.
type ChangeConfig struct {
	// Comparison names the baseline period: hour, day, or week.
	Comparison string `json:"comparison"`
	// Mode is percent or absolute.
	Mode string `json:"mode"`
	// Threshold is the minimum |delta| that triggers.
	Threshold float64 `json:"threshold"`
}

// comparisonOffset maps a comparison period name to its duration.
func comparisonOffset(comparison string) (time.Duration, bool) {
	switch comparison {
	case "hour":
		return time.Hour, true
	case "day":
		return 24 * time.Hour, true
	case "week":
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ChangeEvaluator compares the current value to a value from a named
// comparison period and triggers when the delta exceeds the threshold.
type ChangeEvaluator struct {
	store metricstore.Store
}

// NewChangeEvaluator creates a change evaluator.
func NewChangeEvaluator(store metricstore.Store) *ChangeEvaluator {
	return &ChangeEvaluator{store: store}
}

// Type returns the change condition type.
func (e *ChangeEvaluator) Type() models.ConditionType {
	return models.ConditionChange
}

// Evaluate triggers when |delta| >= threshold. In percent mode a zero
// baseline never triggers (no safe division).
func (e *ChangeEvaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	var cfg ChangeConfig
	if err := decodeConfig(req.Config, &cfg); err != nil {
		return Result{}, err
	}

	offset, ok := comparisonOffset(cfg.Comparison)
	if !ok {
		return Result{}, fmt.Errorf("invalid comparison period %q", cfg.Comparison)
	}

	current, err := currentValue(ctx, e.store, req)
	if err != nil {
		return Result{}, err
	}

	baselineAt := req.Now.Add(-offset)
	baseline, err := e.store.ValueAt(ctx, req.WorkspaceID, req.MetricType, baselineAt, baselineTolerance)
	if errors.Is(err, metricstore.ErrNoData) {
		// No baseline sample means nothing to compare against.
		return Result{
			Triggered: false,
			Context: map[string]interface{}{
				"current_value": current,
				"comparison":    cfg.Comparison,
				"reason":        "no baseline data",
			},
		}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("baseline value: %w", err)
	}

	var delta float64
	switch cfg.Mode {
	case "percent":
		if abs(baseline) < floatEpsilon {
			return Result{
				Triggered: false,
				Context: map[string]interface{}{
					"current_value":  current,
					"baseline_value": baseline,
					"comparison":     cfg.Comparison,
					"mode":           cfg.Mode,
					"reason":         "zero baseline",
				},
			}, nil
		}
		delta = (current - baseline) / baseline * 100
	case "absolute":
		delta = current - baseline
	default:
		return Result{}, fmt.Errorf("invalid change mode %q", cfg.Mode)
	}

	return Result{
		Triggered: abs(delta) >= cfg.Threshold,
		Context: map[string]interface{}{
			"current_value":  current,
			"baseline_value": baseline,
			"delta":          delta,
			"comparison":     cfg.Comparison,
			"mode":           cfg.Mode,
			"threshold":      cfg.Threshold,
		},
	}, nil
}
