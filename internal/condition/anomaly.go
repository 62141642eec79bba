package condition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// minAnomalySamples is the minimum baseline size for a z-score to be
// meaningful. Fewer samples is a non-trigger, not an error.
const minAnomalySamples = 10

// AnomalyConfig configures an anomaly condition.
type AnomalyConfig struct {
	// Window is the lookback window for the baseline (e.g. "1h").
	Window string `json:"window"`
	// Sensitivity is the z-score multiplier that triggers, in [1.0, 5.0].
	Sensitivity float64 `json:"sensitivity"`
}

// AnomalyEvaluator triggers when the current value deviates from the
// lookback baseline by more than sensitivity standard deviations.
type AnomalyEvaluator struct {
	store metricstore.Store
}

// NewAnomalyEvaluator creates an anomaly evaluator.
func NewAnomalyEvaluator(store metricstore.Store) *AnomalyEvaluator {
	return &AnomalyEvaluator{store: store}
}

// Type returns the anomaly condition type.
func (e *AnomalyEvaluator) Type() models.ConditionType {
	return models.ConditionAnomaly
}

// Evaluate computes a mean/stddev baseline from the lookback window and
// triggers when |current - mean| / stddev > sensitivity. Zero-variance
// baselines never trigger.
func (e *AnomalyEvaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	var cfg AnomalyConfig
	if err := decodeConfig(req.Config, &cfg); err != nil {
		return Result{}, err
	}

	window, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return Result{}, fmt.Errorf("invalid anomaly window %q: %w", cfg.Window, err)
	}

	current, err := currentValue(ctx, e.store, req)
	if err != nil {
		return Result{}, err
	}

	samples, err := e.store.Samples(ctx, req.WorkspaceID, req.MetricType, req.Now.Add(-window), req.Now, 0)
	if err != nil && !errors.Is(err, metricstore.ErrNoData) {
		return Result{}, fmt.Errorf("baseline samples: %w", err)
	}

	if len(samples) < minAnomalySamples {
		return Result{
			Triggered: false,
			Context: map[string]interface{}{
				"current_value": current,
				"sample_count":  len(samples),
				"reason":        "insufficient baseline samples",
			},
		}, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	baselineMean := mean(values)
	baselineStddev := stddev(values, baselineMean)

	if baselineStddev < floatEpsilon {
		// No safe z-score on a zero-variance baseline.
		return Result{
			Triggered: false,
			Context: map[string]interface{}{
				"current_value": current,
				"mean":          baselineMean,
				"stddev":        baselineStddev,
				"reason":        "zero variance baseline",
			},
		}, nil
	}

	zScore := math.Abs(current-baselineMean) / baselineStddev

	return Result{
		Triggered: zScore > cfg.Sensitivity,
		Context: map[string]interface{}{
			"current_value": current,
			"mean":          baselineMean,
			"stddev":        baselineStddev,
			"z_score":       zScore,
			"sensitivity":   cfg.Sensitivity,
			"sample_count":  len(samples),
		},
	}, nil
}

// mean returns the arithmetic mean of values.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev returns the population standard deviation of values around m.
func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
