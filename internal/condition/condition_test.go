package condition

import (
	"context"
	"testing"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

var evalTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func evalRequest(cfg map[string]interface{}) Request {
	return Request{
		WorkspaceID: "ws-1",
		MetricType:  "cpu_usage",
		Config:      cfg,
		Now:         evalTime,
	}
}

func TestThresholdEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		operator  string
		threshold float64
		want      bool
	}{
		{"greater than triggers", 10, ">", 5, true},
		{"equal does not satisfy strict greater", 5, ">", 5, false},
		{"less than", 3, "<", 5, true},
		{"greater or equal at boundary", 5, ">=", 5, true},
		{"less or equal above boundary", 6, "<=", 5, false},
		{"equality within tolerance", 5.0000000001, "==", 5, true},
		{"equality outside tolerance", 5.1, "==", 5, false},
		{"not equal", 5.1, "!=", 5, true},
		{"not equal within tolerance", 5.0000000001, "!=", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := metricstore.NewMemoryStore()
			store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Minute), tt.value)

			e := NewThresholdEvaluator(store)
			res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
				"operator":  tt.operator,
				"threshold": tt.threshold,
			}))
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if res.Triggered != tt.want {
				t.Errorf("triggered = %v, want %v", res.Triggered, tt.want)
			}
			if res.Context["current_value"] != tt.value {
				t.Errorf("context current_value = %v, want %v", res.Context["current_value"], tt.value)
			}
		})
	}
}

func TestThresholdNoData(t *testing.T) {
	e := NewThresholdEvaluator(metricstore.NewMemoryStore())
	_, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"operator":  ">",
		"threshold": 5,
	}))
	if err == nil {
		t.Fatal("expected error for empty series")
	}
}

func TestChangeEvaluatePercent(t *testing.T) {
	store := metricstore.NewMemoryStore()
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Hour), 100) // baseline
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Minute), 150)

	e := NewChangeEvaluator(store)
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"comparison": "hour",
		"mode":       "percent",
		"threshold":  25,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Triggered {
		t.Error("50% increase over 25% threshold should trigger")
	}
	if res.Context["delta"] != float64(50) {
		t.Errorf("delta = %v, want 50", res.Context["delta"])
	}
}

func TestChangeEvaluateAbsoluteDecrease(t *testing.T) {
	store := metricstore.NewMemoryStore()
	store.Add("ws-1", "cpu_usage", evalTime.Add(-24*time.Hour), 100)
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Minute), 70)

	e := NewChangeEvaluator(store)
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"comparison": "day",
		"mode":       "absolute",
		"threshold":  20,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Triggered {
		t.Error("absolute drop of 30 over threshold 20 should trigger")
	}
}

func TestChangeZeroBaselineNeverTriggers(t *testing.T) {
	store := metricstore.NewMemoryStore()
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Hour), 0)
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Minute), 100)

	e := NewChangeEvaluator(store)
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"comparison": "hour",
		"mode":       "percent",
		"threshold":  10,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Triggered {
		t.Error("zero baseline in percent mode must never trigger")
	}
	if res.Context["reason"] != "zero baseline" {
		t.Errorf("reason = %v", res.Context["reason"])
	}
}

func TestChangeNoBaselineData(t *testing.T) {
	store := metricstore.NewMemoryStore()
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Minute), 100)

	e := NewChangeEvaluator(store)
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"comparison": "week",
		"mode":       "percent",
		"threshold":  10,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Triggered {
		t.Error("missing baseline must be a non-trigger")
	}
	if res.Context["reason"] != "no baseline data" {
		t.Errorf("reason = %v", res.Context["reason"])
	}
}

func TestAnomalyEvaluate(t *testing.T) {
	store := metricstore.NewMemoryStore()
	// Stable baseline around 50 with mild noise.
	noise := []float64{50, 51, 49, 50, 52, 48, 50, 51, 49, 50, 50, 51}
	for i, v := range noise {
		store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Duration(len(noise)-i)*time.Minute), v)
	}

	e := NewAnomalyEvaluator(store)

	// The latest sample sits in the baseline: quiet.
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"window":      "1h",
		"sensitivity": 3.0,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Triggered {
		t.Error("in-baseline value should not be anomalous")
	}

	// A far outlier triggers.
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Second), 200)
	res, err = e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"window":      "1h",
		"sensitivity": 3.0,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Triggered {
		t.Errorf("outlier should be anomalous, z_score=%v", res.Context["z_score"])
	}
}

func TestAnomalyInsufficientSamples(t *testing.T) {
	store := metricstore.NewMemoryStore()
	for i := 0; i < minAnomalySamples-1; i++ {
		store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Duration(i+1)*time.Minute), 50)
	}

	e := NewAnomalyEvaluator(store)
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"window":      "1h",
		"sensitivity": 2.0,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Triggered {
		t.Error("fewer than the minimum samples must be a non-trigger")
	}
	if res.Context["reason"] != "insufficient baseline samples" {
		t.Errorf("reason = %v", res.Context["reason"])
	}
}

func TestAnomalyZeroVarianceNeverTriggers(t *testing.T) {
	store := metricstore.NewMemoryStore()
	for i := 0; i < 12; i++ {
		store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Duration(i+1)*time.Minute), 50)
	}

	e := NewAnomalyEvaluator(store)
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"window":      "1h",
		"sensitivity": 2.0,
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Triggered {
		t.Error("zero-variance baseline must never trigger")
	}
	if res.Context["reason"] != "zero variance baseline" {
		t.Errorf("reason = %v", res.Context["reason"])
	}
}

func TestPatternShapes(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		cfg    map[string]interface{}
		want   bool
	}{
		{"increase run", []float64{1, 2, 3, 4}, map[string]interface{}{"window": "1h", "shape": "increase"}, true},
		{"increase broken run", []float64{1, 2, 2, 4}, map[string]interface{}{"window": "1h", "shape": "increase"}, false},
		{"decrease run", []float64{9, 7, 5, 3}, map[string]interface{}{"window": "1h", "shape": "decrease"}, true},
		{"custom min_run longer than data run", []float64{5, 1, 2, 3}, map[string]interface{}{"window": "1h", "shape": "increase", "min_run": 4}, false},
		{"spike", []float64{10, 10, 10, 30}, map[string]interface{}{"window": "1h", "shape": "spike"}, true},
		{"no spike", []float64{10, 10, 10, 15}, map[string]interface{}{"window": "1h", "shape": "spike"}, false},
		{"flatline", []float64{7, 7, 7, 7}, map[string]interface{}{"window": "1h", "shape": "flatline"}, true},
		{"not flat", []float64{7, 7, 8, 7}, map[string]interface{}{"window": "1h", "shape": "flatline"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := metricstore.NewMemoryStore()
			for i, v := range tt.values {
				store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Duration(len(tt.values)-i)*time.Minute), v)
			}

			e := NewPatternEvaluator(store)
			res, err := e.Evaluate(context.Background(), evalRequest(tt.cfg))
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if res.Triggered != tt.want {
				t.Errorf("triggered = %v, want %v", res.Triggered, tt.want)
			}
		})
	}
}

func TestPatternInsufficientSamples(t *testing.T) {
	store := metricstore.NewMemoryStore()
	store.Add("ws-1", "cpu_usage", evalTime.Add(-time.Minute), 1)
	store.Add("ws-1", "cpu_usage", evalTime.Add(-2*time.Minute), 2)

	e := NewPatternEvaluator(store)
	res, err := e.Evaluate(context.Background(), evalRequest(map[string]interface{}{
		"window": "1h",
		"shape":  "increase",
	}))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Triggered {
		t.Error("fewer than 3 samples must be a non-trigger")
	}
}

func TestRegistryCoversAllTypes(t *testing.T) {
	r := NewRegistry(metricstore.NewMemoryStore())
	for _, ct := range []models.ConditionType{
		models.ConditionThreshold, models.ConditionChange, models.ConditionAnomaly, models.ConditionPattern,
	} {
		if _, ok := r.Get(ct); !ok {
			t.Errorf("no evaluator registered for %s", ct)
		}
	}
	if _, ok := r.Get(models.ConditionType("magic")); ok {
		t.Error("unknown type should not resolve")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		ctype   models.ConditionType
		cfg     map[string]interface{}
		wantErr bool
	}{
		{"valid threshold", models.ConditionThreshold, map[string]interface{}{"operator": ">", "threshold": 90.0}, false},
		{"threshold missing operator", models.ConditionThreshold, map[string]interface{}{"threshold": 90.0}, true},
		{"threshold bad operator", models.ConditionThreshold, map[string]interface{}{"operator": "~", "threshold": 90.0}, true},
		{"threshold missing value", models.ConditionThreshold, map[string]interface{}{"operator": ">"}, true},
		{"valid change", models.ConditionChange, map[string]interface{}{"comparison": "day", "mode": "percent", "threshold": 10.0}, false},
		{"change bad comparison", models.ConditionChange, map[string]interface{}{"comparison": "month", "mode": "percent", "threshold": 10.0}, true},
		{"change non-positive threshold", models.ConditionChange, map[string]interface{}{"comparison": "day", "mode": "percent", "threshold": 0.0}, true},
		{"valid anomaly", models.ConditionAnomaly, map[string]interface{}{"window": "1h", "sensitivity": 2.5}, false},
		{"anomaly sensitivity too high", models.ConditionAnomaly, map[string]interface{}{"window": "1h", "sensitivity": 6.0}, true},
		{"anomaly bad window", models.ConditionAnomaly, map[string]interface{}{"window": "soon", "sensitivity": 2.0}, true},
		{"valid pattern", models.ConditionPattern, map[string]interface{}{"window": "30m", "shape": "spike"}, false},
		{"pattern bad shape", models.ConditionPattern, map[string]interface{}{"window": "30m", "shape": "zigzag"}, true},
		{"unknown type", models.ConditionType("magic"), map[string]interface{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.ctype, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
