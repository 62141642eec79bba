// Package engine implements the alert evaluation engine: it walks enabled
// rules, evaluates their conditions against metric data, applies suppression
// and cooldown, fires alerts, dispatches notifications, and advances timed
// escalations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/condition"
	"github.com/good-yellow-bee/pulsewatch/internal/metrics"
	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
	"github.com/good-yellow-bee/pulsewatch/internal/notifier"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// Outcome classifies a single rule evaluation.
type Outcome string

const (
	OutcomeTriggered  Outcome = "triggered"
	OutcomeQuiet      Outcome = "quiet"
	OutcomeCooldown   Outcome = "cooldown"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeNoData     Outcome = "no_data"
	OutcomeError      Outcome = "error"
)

// BatchResult summarizes one EvaluateRules pass.
type BatchResult struct {
	Evaluated  int
	Triggered  int
	Suppressed int
	Errors     []error
}

// Engine orchestrates rule evaluation and the alert lifecycle.
type Engine struct {
	store      storage.Storage
	conditions *condition.Registry
	dispatcher *notifier.Dispatcher
	cooldowns  *CooldownManager

	// now is swappable for tests.
	now func() time.Time
}

// New creates an engine over the given storage, condition registry and
// dispatcher.
func New(store storage.Storage, conditions *condition.Registry, dispatcher *notifier.Dispatcher) *Engine {
	return &Engine{
		store:      store,
		conditions: conditions,
		dispatcher: dispatcher,
		cooldowns:  NewCooldownManager(),
		now:        time.Now,
	}
}

// EvaluateRules evaluates every enabled rule in the workspace that is due.
// A failure on one rule is collected and never aborts the batch.
func (e *Engine) EvaluateRules(ctx context.Context, workspaceID string) (*BatchResult, error) {
	rules, err := e.store.Rules().ListEnabled(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}

	now := e.now()
	result := &BatchResult{}

	suppressions, err := e.store.Suppressions().ListActive(ctx, workspaceID, now)
	if err != nil {
		return nil, fmt.Errorf("list active suppressions: %w", err)
	}

	for _, rule := range rules {
		if !rule.DueAt(now) {
			continue
		}
		result.Evaluated++

		start := time.Now()
		outcome, err := e.evaluateRule(ctx, rule, suppressions, now)
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
		metrics.EvaluationsTotal.WithLabelValues(string(outcome)).Inc()

		switch outcome {
		case OutcomeTriggered:
			result.Triggered++
		case OutcomeSuppressed:
			result.Suppressed++
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("rule %s (%s): %w", rule.Name, rule.ID, err))
		}
	}

	return result, nil
}

// evaluateRule runs one rule through suppression, cooldown and condition
// evaluation, firing an alert on trigger. The evaluation timestamp is
// stamped on every attempt regardless of outcome.
func (e *Engine) evaluateRule(ctx context.Context, rule *models.Rule, suppressions []*models.Suppression, now time.Time) (Outcome, error) {
	if err := e.store.Rules().TouchEvaluated(ctx, rule.ID, now); err != nil {
		log.Printf("engine: stamp evaluation for rule %s: %v", rule.ID, err)
	}

	for _, s := range suppressions {
		if s.Matches(rule) {
			log.Printf("engine: rule %s suppressed by %s window %s (%s)", rule.Name, s.Kind, s.ID, s.Reason)
			return OutcomeSuppressed, nil
		}
	}

	if e.cooldowns.InCooldown(rule, now) {
		return OutcomeCooldown, nil
	}

	evaluator, ok := e.conditions.Get(rule.ConditionType)
	if !ok {
		return OutcomeError, fmt.Errorf("no evaluator for condition type %q", rule.ConditionType)
	}

	cfg, err := rule.ConditionConfig()
	if err != nil {
		return OutcomeError, fmt.Errorf("decode condition config: %w", err)
	}

	res, err := evaluator.Evaluate(ctx, condition.Request{
		WorkspaceID: rule.WorkspaceID,
		MetricType:  rule.MetricType,
		Config:      cfg,
		Now:         now,
	})
	if err != nil {
		if errors.Is(err, metricstore.ErrNoData) {
			log.Printf("engine: rule %s: no metric data for %s, skipping", rule.Name, rule.MetricType)
			return OutcomeNoData, nil
		}
		return OutcomeError, fmt.Errorf("evaluate condition: %w", err)
	}

	if !res.Triggered {
		return OutcomeQuiet, nil
	}

	if err := e.fireAlert(ctx, rule, res, now); err != nil {
		return OutcomeError, err
	}
	return OutcomeTriggered, nil
}

// fireAlert creates the alert record, opens the cooldown window and
// dispatches notifications to the rule's channels.
func (e *Engine) fireAlert(ctx context.Context, rule *models.Rule, res condition.Result, now time.Time) error {
	current, _ := floatFromContext(res.Context, "current_value")
	threshold, _ := floatFromContext(res.Context, "threshold")

	alert := &models.Alert{
		ID:             uuid.New().String(),
		RuleID:         rule.ID,
		WorkspaceID:    rule.WorkspaceID,
		Title:          renderTitle(rule),
		Message:        renderMessage(rule, res.Context),
		Severity:       rule.Severity,
		MetricType:     rule.MetricType,
		MetricValue:    current,
		ThresholdValue: threshold,
		TriggeredAt:    now,
		EscalationID:   rule.EscalationID,
		CreatedAt:      now,
	}
	if err := alert.SetContext(res.Context); err != nil {
		log.Printf("engine: encode alert context: %v", err)
	}

	if err := e.store.Alerts().Create(ctx, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	e.cooldowns.Mark(rule.ID, now)
	if err := e.store.Rules().TouchTriggered(ctx, rule.ID, now); err != nil {
		log.Printf("engine: stamp trigger for rule %s: %v", rule.ID, err)
	}

	metrics.AlertsFiredTotal.WithLabelValues(string(rule.Severity)).Inc()
	log.Printf("engine: alert fired: %s (rule %s, severity %s)", alert.Title, rule.ID, rule.Severity)

	e.notify(ctx, alert, rule.Notify, false)
	return nil
}

// notify dispatches the alert to the given channels and records the outcome.
func (e *Engine) notify(ctx context.Context, alert *models.Alert, channels []string, escalated bool) {
	if len(channels) == 0 {
		return
	}

	evalCtx, err := alert.GetContext()
	if err != nil {
		log.Printf("engine: decode alert context: %v", err)
		evalCtx = nil
	}

	report := e.dispatcher.Send(ctx, &notifier.Notification{
		AlertID:        alert.ID,
		WorkspaceID:    alert.WorkspaceID,
		Title:          alert.Title,
		Message:        alert.Message,
		Severity:       alert.Severity,
		MetricValue:    alert.MetricValue,
		ThresholdValue: alert.ThresholdValue,
		TriggeredAt:    alert.TriggeredAt,
		Escalated:      escalated,
		Context:        evalCtx,
	}, channels)

	for _, r := range report.Results {
		status := "sent"
		if !r.OK {
			status = "failed"
		}
		metrics.NotificationsTotal.WithLabelValues(r.Channel, status).Inc()
	}

	if report.Successful > 0 && !alert.NotificationSent {
		if err := e.store.Alerts().MarkNotified(ctx, alert.ID); err != nil {
			log.Printf("engine: mark alert %s notified: %v", alert.ID, err)
		}
	}
	if report.Failed > 0 {
		log.Printf("engine: alert %s: %d/%d deliveries failed", alert.ID, report.Failed, report.Total)
	}
}

// CheckEscalation advances unacknowledged, unresolved alerts through their
// escalation policies. At most one level is advanced per alert per call, and
// levels are never skipped.
func (e *Engine) CheckEscalation(ctx context.Context) error {
	alerts, err := e.store.Alerts().ListEscalatable(ctx)
	if err != nil {
		return fmt.Errorf("list escalatable alerts: %w", err)
	}

	now := e.now()
	for _, alert := range alerts {
		policy, err := e.store.Policies().GetByID(ctx, alert.EscalationID)
		if err != nil {
			log.Printf("engine: load policy %s for alert %s: %v", alert.EscalationID, alert.ID, err)
			continue
		}
		if policy == nil {
			log.Printf("engine: alert %s references missing policy %s", alert.ID, alert.EscalationID)
			continue
		}

		level, due := policy.NextLevel(alert.EscalationLevel, alert.TriggeredAt, now)
		if !due {
			continue
		}

		alert.Escalated = true
		alert.EscalationLevel = level.Level
		if err := e.store.Alerts().Update(ctx, alert); err != nil {
			log.Printf("engine: escalate alert %s: %v", alert.ID, err)
			continue
		}

		metrics.EscalationsTotal.Inc()
		log.Printf("engine: alert %s escalated to level %d (policy %s)", alert.ID, level.Level, policy.Name)
		e.notify(ctx, alert, level.Notify, true)
	}

	return nil
}

// ApplySuppression installs a suppression window starting now. Matching
// rules are still evaluated and stamped while the window is active, but no
// alerts fire.
func (e *Engine) ApplySuppression(ctx context.Context, workspaceID string, kind models.SuppressionKind, value, reason, by string, d time.Duration) (*models.Suppression, error) {
	if value == "" {
		return nil, fmt.Errorf("suppression value is required")
	}
	if d <= 0 {
		return nil, fmt.Errorf("suppression duration must be positive")
	}

	now := e.now()
	suppression := &models.Suppression{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Kind:        kind,
		Value:       value,
		Reason:      reason,
		StartsAt:    now,
		EndsAt:      now.Add(d),
		CreatedBy:   by,
		CreatedAt:   now,
	}
	if err := e.store.Suppressions().Create(ctx, suppression); err != nil {
		return nil, fmt.Errorf("create suppression: %w", err)
	}

	log.Printf("engine: suppression %s installed: %s=%s until %s", suppression.ID, kind, value, suppression.EndsAt.Format(time.RFC3339))
	return suppression, nil
}

// Acknowledge marks an alert acknowledged, halting further escalation.
// Acknowledging an already-acknowledged alert is a no-op.
func (e *Engine) Acknowledge(ctx context.Context, alertID, by string) (*models.Alert, error) {
	alert, err := e.store.Alerts().GetByID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if alert == nil {
		return nil, fmt.Errorf("alert not found: %s", alertID)
	}
	if alert.IsAcknowledged() {
		return alert, nil
	}

	now := e.now()
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = by
	if err := e.store.Alerts().Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}

	log.Printf("engine: alert %s acknowledged by %s", alertID, by)
	return alert, nil
}

// Resolve terminally marks an alert resolved. Resolving an already-resolved
// alert is a no-op.
func (e *Engine) Resolve(ctx context.Context, alertID, by, notes string) (*models.Alert, error) {
	alert, err := e.store.Alerts().GetByID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if alert == nil {
		return nil, fmt.Errorf("alert not found: %s", alertID)
	}
	if alert.IsResolved() {
		return alert, nil
	}

	now := e.now()
	alert.ResolvedAt = &now
	alert.ResolvedBy = by
	alert.ResolutionNotes = notes
	if err := e.store.Alerts().Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}

	log.Printf("engine: alert %s resolved by %s", alertID, by)
	return alert, nil
}
