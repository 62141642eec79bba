package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

func testStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRule(workspaceID string) *models.Rule {
	rule := models.NewRule(workspaceID, "high cpu", "cpu_usage", models.ConditionThreshold, models.SeverityHigh)
	rule.ID = uuid.New().String()
	rule.Condition = `{"operator":">","threshold":90}`
	rule.CheckInterval = time.Minute
	rule.Cooldown = 10 * time.Minute
	rule.Notify = []string{"ops-email"}
	return rule
}

func TestRuleRepositoryCRUD(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	rule := testRule("ws-1")
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	got, err := store.Rules().GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if got == nil {
		t.Fatal("expected rule, got nil")
	}
	if got.Name != rule.Name {
		t.Errorf("name = %q, want %q", got.Name, rule.Name)
	}
	if got.CheckInterval != time.Minute {
		t.Errorf("check interval = %v, want %v", got.CheckInterval, time.Minute)
	}
	if got.Cooldown != 10*time.Minute {
		t.Errorf("cooldown = %v, want %v", got.Cooldown, 10*time.Minute)
	}
	if len(got.Notify) != 1 || got.Notify[0] != "ops-email" {
		t.Errorf("notify = %v, want [ops-email]", got.Notify)
	}

	got.Name = "very high cpu"
	got.UpdatedAt = time.Now()
	if err := store.Rules().Update(ctx, got); err != nil {
		t.Fatalf("update rule: %v", err)
	}

	updated, err := store.Rules().GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("get updated rule: %v", err)
	}
	if updated.Name != "very high cpu" {
		t.Errorf("name = %q, want %q", updated.Name, "very high cpu")
	}

	if err := store.Rules().Delete(ctx, rule.ID); err != nil {
		t.Fatalf("delete rule: %v", err)
	}

	gone, err := store.Rules().GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("get deleted rule: %v", err)
	}
	if gone != nil {
		t.Error("expected nil after delete")
	}
}

func TestRuleRepositoryListEnabled(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	enabled := testRule("ws-1")
	disabled := testRule("ws-1")
	disabled.Enabled = false
	other := testRule("ws-2")

	for _, r := range []*models.Rule{enabled, disabled, other} {
		if err := store.Rules().Create(ctx, r); err != nil {
			t.Fatalf("create rule: %v", err)
		}
	}

	rules, err := store.Rules().ListEnabled(ctx, "ws-1")
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	if rules[0].ID != enabled.ID {
		t.Errorf("rule id = %s, want %s", rules[0].ID, enabled.ID)
	}

	if err := store.Rules().SetEnabled(ctx, disabled.ID, true); err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	rules, err = store.Rules().ListEnabled(ctx, "ws-1")
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("got %d rules after enable, want 2", len(rules))
	}
}

func TestRuleRepositoryTouch(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	rule := testRule("ws-1")
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	evalAt := time.Now().Truncate(time.Second)
	if err := store.Rules().TouchEvaluated(ctx, rule.ID, evalAt); err != nil {
		t.Fatalf("touch evaluated: %v", err)
	}
	trigAt := evalAt.Add(time.Second)
	if err := store.Rules().TouchTriggered(ctx, rule.ID, trigAt); err != nil {
		t.Fatalf("touch triggered: %v", err)
	}

	got, err := store.Rules().GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if got.LastEvaluatedAt == nil || !got.LastEvaluatedAt.Equal(evalAt) {
		t.Errorf("last evaluated = %v, want %v", got.LastEvaluatedAt, evalAt)
	}
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(trigAt) {
		t.Errorf("last triggered = %v, want %v", got.LastTriggeredAt, trigAt)
	}
}

func TestAlertRepositoryLifecycle(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	rule := testRule("ws-1")
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	alert := &models.Alert{
		ID:             uuid.New().String(),
		RuleID:         rule.ID,
		WorkspaceID:    "ws-1",
		Title:          "high cpu",
		Message:        "cpu_usage is 95.0",
		Severity:       models.SeverityHigh,
		MetricType:     "cpu_usage",
		MetricValue:    95,
		ThresholdValue: 90,
		TriggeredAt:    time.Now().Truncate(time.Second),
		CreatedAt:      time.Now().Truncate(time.Second),
	}
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got.IsAcknowledged() || got.IsResolved() {
		t.Error("new alert should be open")
	}

	ackAt := time.Now().Truncate(time.Second)
	got.AcknowledgedAt = &ackAt
	got.AcknowledgedBy = "alice"
	if err := store.Alerts().Update(ctx, got); err != nil {
		t.Fatalf("update alert: %v", err)
	}

	acked, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get acked alert: %v", err)
	}
	if !acked.IsAcknowledged() {
		t.Error("alert should be acknowledged")
	}
	if acked.AcknowledgedBy != "alice" {
		t.Errorf("acknowledged by = %q, want alice", acked.AcknowledgedBy)
	}

	if err := store.Alerts().MarkNotified(ctx, alert.ID); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	notified, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get notified alert: %v", err)
	}
	if !notified.NotificationSent {
		t.Error("notification_sent should be set")
	}
}

func TestAlertRepositoryListEscalatable(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	rule := testRule("ws-1")
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	mkAlert := func(escalationID string) *models.Alert {
		return &models.Alert{
			ID:           uuid.New().String(),
			RuleID:       rule.ID,
			WorkspaceID:  "ws-1",
			Title:        "t",
			Message:      "m",
			Severity:     models.SeverityHigh,
			MetricType:   "cpu_usage",
			TriggeredAt:  now,
			EscalationID: escalationID,
			CreatedAt:    now,
		}
	}

	escalatable := mkAlert("pol-1")
	noPolicy := mkAlert("")
	acked := mkAlert("pol-1")
	acked.AcknowledgedAt = &now
	resolved := mkAlert("pol-1")
	resolved.ResolvedAt = &now

	for _, a := range []*models.Alert{escalatable, noPolicy, acked, resolved} {
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("create alert: %v", err)
		}
	}

	alerts, err := store.Alerts().ListEscalatable(ctx)
	if err != nil {
		t.Fatalf("list escalatable: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d escalatable alerts, want 1", len(alerts))
	}
	if alerts[0].ID != escalatable.ID {
		t.Errorf("alert id = %s, want %s", alerts[0].ID, escalatable.ID)
	}
}

func TestSuppressionRepositoryListActive(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	mkWindow := func(start, end time.Time) *models.Suppression {
		return &models.Suppression{
			ID:          uuid.New().String(),
			WorkspaceID: "ws-1",
			Kind:        models.SuppressByMetric,
			Value:       "cpu_usage",
			StartsAt:    start,
			EndsAt:      end,
			CreatedAt:   now,
		}
	}

	active := mkWindow(now.Add(-time.Hour), now.Add(time.Hour))
	expired := mkWindow(now.Add(-2*time.Hour), now.Add(-time.Hour))
	future := mkWindow(now.Add(time.Hour), now.Add(2*time.Hour))

	for _, s := range []*models.Suppression{active, expired, future} {
		if err := store.Suppressions().Create(ctx, s); err != nil {
			t.Fatalf("create suppression: %v", err)
		}
	}

	got, err := store.Suppressions().ListActive(ctx, "ws-1", now)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d active windows, want 1", len(got))
	}
	if got[0].ID != active.ID {
		t.Errorf("window id = %s, want %s", got[0].ID, active.ID)
	}

	all, err := store.Suppressions().List(ctx, "ws-1")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d windows, want 3", len(all))
	}
}

func TestPolicyRepositoryRoundTrip(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	policy := &models.EscalationPolicy{
		ID:          uuid.New().String(),
		WorkspaceID: "ws-1",
		Name:        "standard",
		Levels: []models.EscalationLevel{
			{Level: 1, Delay: 5 * time.Minute, Notify: []string{"ops-slack"}},
			{Level: 2, Delay: 15 * time.Minute, Notify: []string{"ops-pager"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Policies().Create(ctx, policy); err != nil {
		t.Fatalf("create policy: %v", err)
	}

	got, err := store.Policies().GetByID(ctx, policy.ID)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if len(got.Levels) != 2 {
		t.Fatalf("got %d levels, want 2", len(got.Levels))
	}
	if got.Levels[1].Delay != 15*time.Minute {
		t.Errorf("level 2 delay = %v, want 15m", got.Levels[1].Delay)
	}
	if len(got.Levels[1].Notify) != 1 || got.Levels[1].Notify[0] != "ops-pager" {
		t.Errorf("level 2 notify = %v, want [ops-pager]", got.Levels[1].Notify)
	}
}

func TestNotificationRepository(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	rule := testRule("ws-1")
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	now := time.Now().Truncate(time.Second)
	alert := &models.Alert{
		ID:          uuid.New().String(),
		RuleID:      rule.ID,
		WorkspaceID: "ws-1",
		Title:       "t",
		Message:     "m",
		Severity:    models.SeverityHigh,
		MetricType:  "cpu_usage",
		TriggeredAt: now,
		CreatedAt:   now,
	}
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	sent := &models.NotificationRecord{
		ID:        uuid.New().String(),
		AlertID:   alert.ID,
		Channel:   "ops-email",
		Recipient: "oncall@example.com",
		Status:    models.DeliverySent,
		SentAt:    now,
		CreatedAt: now,
	}
	failed := &models.NotificationRecord{
		ID:        uuid.New().String(),
		AlertID:   alert.ID,
		Channel:   "ops-slack",
		Recipient: "#incidents",
		Status:    models.DeliveryFailed,
		Error:     "timeout",
		SentAt:    now.Add(time.Second),
		CreatedAt: now.Add(time.Second),
	}
	for _, rec := range []*models.NotificationRecord{sent, failed} {
		if err := store.Notifications().Append(ctx, rec); err != nil {
			t.Fatalf("append record: %v", err)
		}
	}

	records, total, err := store.Notifications().ListByAlert(ctx, alert.ID, 10, 0)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("got %d records (total %d), want 2", len(records), total)
	}
	// Most recent first.
	if records[0].Status != models.DeliveryFailed {
		t.Errorf("first record status = %s, want failed", records[0].Status)
	}
	if records[0].Error != "timeout" {
		t.Errorf("error = %q, want timeout", records[0].Error)
	}

	deleted, err := store.Notifications().DeleteBefore(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}
