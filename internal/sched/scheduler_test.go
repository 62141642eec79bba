package sched

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/condition"
	"github.com/good-yellow-bee/pulsewatch/internal/engine"
	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/notifier"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

func TestSchedulerDefaults(t *testing.T) {
	s := New(Config{}, nil, nil)
	if s.cfg.EvaluateInterval != 30*time.Second {
		t.Errorf("evaluate interval = %v, want 30s", s.cfg.EvaluateInterval)
	}
	if s.cfg.EscalationInterval != time.Minute {
		t.Errorf("escalation interval = %v, want 1m", s.cfg.EscalationInterval)
	}
}

func TestSchedulerRunsEvaluationPasses(t *testing.T) {
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "sched.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	defer store.Close()

	metricStore := metricstore.NewMemoryStore()
	metricStore.Add("ws-1", "cpu_usage", time.Now(), 95)

	rule := models.NewRule("ws-1", "high cpu", "cpu_usage", models.ConditionThreshold, models.SeverityHigh)
	rule.ID = uuid.New().String()
	rule.Condition = `{"operator":">","threshold":90}`
	rule.CheckInterval = time.Millisecond
	if err := store.Rules().Create(context.Background(), rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	eng := engine.New(store, condition.NewRegistry(metricStore), notifier.NewDispatcher(nil, 100, 100))
	s := New(Config{
		Workspaces:         []string{"ws-1"},
		EvaluateInterval:   10 * time.Millisecond,
		EscalationInterval: 10 * time.Millisecond,
	}, eng, store)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("run returned %v, want deadline exceeded", err)
	}

	_, total, err := store.Alerts().List(context.Background(), "ws-1", 10, 0)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if total < 1 {
		t.Error("scheduler never fired the due rule")
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	eng := engine.New(nil, condition.NewRegistry(metricstore.NewMemoryStore()), notifier.NewDispatcher(nil, 100, 100))
	s := New(Config{EvaluateInterval: time.Hour, EscalationInterval: time.Hour}, eng, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("run returned %v, want context canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
