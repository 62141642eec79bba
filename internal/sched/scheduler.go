// Package sched runs the periodic evaluation and escalation loops.
package sched

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pulsewatch/internal/engine"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// Config controls the scheduler's loop intervals.
type Config struct {
	// Workspaces lists the workspace IDs to evaluate.
	Workspaces []string
	// EvaluateInterval is the tick between evaluation passes.
	EvaluateInterval time.Duration
	// EscalationInterval is the tick between escalation passes.
	EscalationInterval time.Duration
	// HistoryRetention bounds how long delivery history is kept. Zero
	// disables pruning.
	HistoryRetention time.Duration
}

// Scheduler drives the engine on fixed intervals until its context is
// cancelled.
type Scheduler struct {
	cfg    Config
	engine *engine.Engine
	store  storage.Storage
}

// New creates a scheduler, applying defaults for unset intervals.
func New(cfg Config, eng *engine.Engine, store storage.Storage) *Scheduler {
	if cfg.EvaluateInterval <= 0 {
		cfg.EvaluateInterval = 30 * time.Second
	}
	if cfg.EscalationInterval <= 0 {
		cfg.EscalationInterval = time.Minute
	}
	return &Scheduler{cfg: cfg, engine: eng, store: store}
}

// Run starts the loops and blocks until ctx is cancelled. It always returns
// ctx.Err() on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.evaluateLoop(ctx) })
	g.Go(func() error { return s.escalationLoop(ctx) })
	if s.cfg.HistoryRetention > 0 {
		g.Go(func() error { return s.retentionLoop(ctx) })
	}

	return g.Wait()
}

func (s *Scheduler) evaluateLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.EvaluateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.evaluateOnce(ctx)
		}
	}
}

// evaluateOnce runs one evaluation pass over every configured workspace.
func (s *Scheduler) evaluateOnce(ctx context.Context) {
	for _, ws := range s.cfg.Workspaces {
		result, err := s.engine.EvaluateRules(ctx, ws)
		if err != nil {
			log.Printf("sched: evaluate workspace %s: %v", ws, err)
			continue
		}
		for _, e := range result.Errors {
			log.Printf("sched: workspace %s: %v", ws, e)
		}
		if result.Triggered > 0 || result.Suppressed > 0 {
			log.Printf("sched: workspace %s: evaluated=%d triggered=%d suppressed=%d",
				ws, result.Evaluated, result.Triggered, result.Suppressed)
		}
	}
}

func (s *Scheduler) escalationLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.EscalationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.engine.CheckEscalation(ctx); err != nil {
				log.Printf("sched: check escalation: %v", err)
			}
		}
	}
}

// retentionLoop prunes old delivery history once an hour.
func (s *Scheduler) retentionLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.HistoryRetention)
			deleted, err := s.store.Notifications().DeleteBefore(ctx, cutoff)
			if err != nil {
				log.Printf("sched: prune delivery history: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("sched: pruned %d delivery records older than %s", deleted, cutoff.Format(time.RFC3339))
			}
		}
	}
}
