package metricstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]Sample
}

// NewMemoryStore creates an empty in-memory metric store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]Sample)}
}

func seriesKey(workspaceID, metricType string) string {
	return workspaceID + "\x00" + metricType
}

// Add appends a sample to the series, keeping samples ordered by time.
func (m *MemoryStore) Add(workspaceID, metricType string, ts time.Time, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := seriesKey(workspaceID, metricType)
	samples := append(m.series[key], Sample{Timestamp: ts, Value: value})
	sort.Slice(samples, func(i, j int) bool { return samples[i].Timestamp.Before(samples[j].Timestamp) })
	m.series[key] = samples
}

// CurrentValue returns the most recent sample value for the series.
func (m *MemoryStore) CurrentValue(ctx context.Context, workspaceID, metricType string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	samples := m.series[seriesKey(workspaceID, metricType)]
	if len(samples) == 0 {
		return 0, ErrNoData
	}
	return samples[len(samples)-1].Value, nil
}

// ValueAt returns the sample value closest to the given instant.
func (m *MemoryStore) ValueAt(ctx context.Context, workspaceID, metricType string, at time.Time, tolerance time.Duration) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	samples := m.series[seriesKey(workspaceID, metricType)]

	best := -1
	var bestDist time.Duration
	for i, s := range samples {
		dist := s.Timestamp.Sub(at)
		if dist < 0 {
			dist = -dist
		}
		if dist > tolerance {
			continue
		}
		if best == -1 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best == -1 {
		return 0, ErrNoData
	}
	return samples[best].Value, nil
}

// Samples returns samples in [from, to) ordered by timestamp ascending.
func (m *MemoryStore) Samples(ctx context.Context, workspaceID, metricType string, from, to time.Time, limit int) ([]Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Sample
	for _, s := range m.series[seriesKey(workspaceID, metricType)] {
		if s.Timestamp.Before(from) || !s.Timestamp.Before(to) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
