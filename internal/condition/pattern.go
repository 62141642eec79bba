package condition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const (
	// minPatternSamples is the minimum window size for shape detection.
	minPatternSamples = 3

	// defaultMinRun is the default run length for monotonic shapes.
	defaultMinRun = 3

	// spikeFactor is how far above the rest-of-window mean the latest
	// sample must be to count as a spike.
	spikeFactor = 2.0

	// flatlineEpsilon is the stddev below which a window counts as flat.
	flatlineEpsilon = 1e-6
)

// PatternConfig configures a pattern condition.
type PatternConfig struct {
	// Window is the sample window to inspect (e.g. "30m").
	Window string `json:"window"`
	// Shape is one of increase, decrease, spike, flatline.
	Shape string `json:"shape"`
	// MinRun is the minimum run length for monotonic shapes (default 3).
	MinRun int `json:"min_run,omitempty"`
}

// PatternEvaluator detects qualitative shapes in a recent sample window.
type PatternEvaluator struct {
	store metricstore.Store
}

// NewPatternEvaluator creates a pattern evaluator.
func NewPatternEvaluator(store metricstore.Store) *PatternEvaluator {
	return &PatternEvaluator{store: store}
}

// Type returns the pattern condition type.
func (e *PatternEvaluator) Type() models.ConditionType {
	return models.ConditionPattern
}

// Evaluate triggers on the configured shape. Fewer than 3 samples is a
// non-trigger, not an error.
func (e *PatternEvaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	var cfg PatternConfig
	if err := decodeConfig(req.Config, &cfg); err != nil {
		return Result{}, err
	}

	window, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return Result{}, fmt.Errorf("invalid pattern window %q: %w", cfg.Window, err)
	}

	samples, err := e.store.Samples(ctx, req.WorkspaceID, req.MetricType, req.Now.Add(-window), req.Now, 0)
	if err != nil && !errors.Is(err, metricstore.ErrNoData) {
		return Result{}, fmt.Errorf("window samples: %w", err)
	}

	if len(samples) < minPatternSamples {
		return Result{
			Triggered: false,
			Context: map[string]interface{}{
				"shape":        cfg.Shape,
				"sample_count": len(samples),
				"reason":       "insufficient samples",
			},
		}, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}

	minRun := cfg.MinRun
	if minRun <= 0 {
		minRun = defaultMinRun
	}

	var triggered bool
	detail := map[string]interface{}{}

	switch cfg.Shape {
	case "increase":
		triggered = monotonicRun(values, minRun, true)
		detail["min_run"] = minRun
	case "decrease":
		triggered = monotonicRun(values, minRun, false)
		detail["min_run"] = minRun
	case "spike":
		rest := values[:len(values)-1]
		restMean := mean(rest)
		latest := values[len(values)-1]
		triggered = restMean > 0 && latest > spikeFactor*restMean
		detail["latest"] = latest
		detail["rest_mean"] = restMean
	case "flatline":
		m := mean(values)
		sd := stddev(values, m)
		triggered = sd < flatlineEpsilon
		detail["stddev"] = sd
	default:
		return Result{}, fmt.Errorf("invalid pattern shape %q", cfg.Shape)
	}

	resultCtx := map[string]interface{}{
		"shape":         cfg.Shape,
		"sample_count":  len(samples),
		"current_value": values[len(values)-1],
	}
	for k, v := range detail {
		resultCtx[k] = v
	}

	return Result{Triggered: triggered, Context: resultCtx}, nil
}

// monotonicRun reports whether the trailing minRun samples are strictly
// monotonic in the given direction.
func monotonicRun(values []float64, minRun int, increasing bool) bool {
	if len(values) < minRun || minRun < 2 {
		return false
	}
	tail := values[len(values)-minRun:]
	for i := 1; i < len(tail); i++ {
		if increasing && tail[i] <= tail[i-1] {
			return false
		}
		if !increasing && tail[i] >= tail[i-1] {
			return false
		}
	}
	return true
}
