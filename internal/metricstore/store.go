// Package metricstore provides read access to the time-series metric backend.
package metricstore

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned when no samples exist for the requested series.
var ErrNoData = errors.New("no metric data")

// Sample is a single numeric metric observation.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Store answers point and windowed queries over (workspace, metric type)
// series. The engine does not dictate the backend's schema, only that it can
// answer "current value" and "N historical values over a window".
type Store interface {
	// CurrentValue returns the most recent sample value for the series.
	CurrentValue(ctx context.Context, workspaceID, metricType string) (float64, error)

	// ValueAt returns the sample value closest to the given instant,
	// searching within the given tolerance on either side.
	ValueAt(ctx context.Context, workspaceID, metricType string, at time.Time, tolerance time.Duration) (float64, error)

	// Samples returns samples in [from, to) ordered by timestamp ascending,
	// capped at limit (0 means no cap).
	Samples(ctx context.Context, workspaceID, metricType string, from, to time.Time, limit int) ([]Sample, error)

	// Close releases backend resources.
	Close() error
}
