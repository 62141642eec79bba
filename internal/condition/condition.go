// Package condition provides the condition evaluators for PulseWatch rules.
// It supports threshold, change, anomaly and pattern conditions, each
// selected by the rule's condition type and configured through an opaque
// key/value config validated at rule creation time.
package condition

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// floatEpsilon is the tolerance for float64 equality comparison,
// avoiding unreliable direct == on floating-point values.
const floatEpsilon = 1e-9

// Request carries the inputs for a single condition evaluation.
type Request struct {
	// WorkspaceID scopes metric queries.
	WorkspaceID string
	// MetricType names the series to evaluate.
	MetricType string
	// Config is the rule's condition configuration.
	Config map[string]interface{}
	// Current is an optional pre-fetched sample. When nil, evaluators query
	// the metric store for the current value.
	Current *metricstore.Sample
	// Now is the evaluation time.
	Now time.Time
}

// Result is the outcome of a condition evaluation. Context describes the
// inputs used for the decision so callers can render a human-readable alert
// message without re-deriving the numbers.
type Result struct {
	Triggered bool
	Context   map[string]interface{}
}

// Evaluator decides whether a rule's condition currently holds.
type Evaluator interface {
	// Type returns the condition type this evaluator handles.
	Type() models.ConditionType
	// Evaluate evaluates the condition against current/historical metric data.
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// Registry maps condition types to evaluators.
type Registry struct {
	evaluators map[models.ConditionType]Evaluator
}

// NewRegistry creates a registry with all built-in evaluators backed by the
// given metric store.
func NewRegistry(store metricstore.Store) *Registry {
	r := &Registry{evaluators: make(map[models.ConditionType]Evaluator)}
	r.Register(NewThresholdEvaluator(store))
	r.Register(NewChangeEvaluator(store))
	r.Register(NewAnomalyEvaluator(store))
	r.Register(NewPatternEvaluator(store))
	return r
}

// Register adds an evaluator to the registry.
func (r *Registry) Register(e Evaluator) {
	r.evaluators[e.Type()] = e
}

// Get returns the evaluator for a condition type.
func (r *Registry) Get(t models.ConditionType) (Evaluator, bool) {
	e, ok := r.evaluators[t]
	return e, ok
}

// compare compares a value against a threshold using the given operator.
// Equality uses floatEpsilon tolerance.
func compare(value, threshold float64, operator string) bool {
	switch operator {
	case ">=":
		return value >= threshold
	case ">":
		return value > threshold
	case "<=":
		return value <= threshold
	case "<":
		return value < threshold
	case "==":
		return abs(value-threshold) < floatEpsilon
	case "!=":
		return abs(value-threshold) >= floatEpsilon
	default:
		return false
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// decodeConfig converts an opaque config map into a typed config struct.
func decodeConfig(cfg map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal condition config: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode condition config: %w", err)
	}
	return nil
}

// currentValue resolves the current metric value from the request's
// pre-fetched sample or the metric store.
func currentValue(ctx context.Context, store metricstore.Store, req Request) (float64, error) {
	if req.Current != nil {
		return req.Current.Value, nil
	}
	value, err := store.CurrentValue(ctx, req.WorkspaceID, req.MetricType)
	if err != nil {
		return 0, fmt.Errorf("current value for %s/%s: %w", req.WorkspaceID, req.MetricType, err)
	}
	return value, nil
}
