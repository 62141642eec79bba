package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const ruleColumns = `id, workspace_id, name, metric_type, condition_type, condition_json,
	check_interval_ns, cooldown_ns, severity, notify_json, escalation_id, enabled,
	last_evaluated_at, last_triggered_at, created_at, updated_at`

type sqliteRuleRepo struct {
	db *sql.DB
}

func (r *sqliteRuleRepo) Create(ctx context.Context, rule *models.Rule) error {
	notifyJSON, err := json.Marshal(rule.Notify)
	if err != nil {
		return fmt.Errorf("marshal notify: %w", err)
	}

	query := `
		INSERT INTO rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.WorkspaceID, rule.Name, rule.MetricType, rule.ConditionType, rule.Condition,
		rule.CheckInterval.Nanoseconds(), rule.Cooldown.Nanoseconds(), rule.Severity, string(notifyJSON),
		nullString(rule.EscalationID), boolToInt(rule.Enabled),
		nullTime(rule.LastEvaluatedAt), nullTime(rule.LastTriggeredAt),
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *sqliteRuleRepo) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = ?`
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	return rule, nil
}

func (r *sqliteRuleRepo) Update(ctx context.Context, rule *models.Rule) error {
	notifyJSON, err := json.Marshal(rule.Notify)
	if err != nil {
		return fmt.Errorf("marshal notify: %w", err)
	}

	query := `
		UPDATE rules SET workspace_id = ?, name = ?, metric_type = ?, condition_type = ?,
			condition_json = ?, check_interval_ns = ?, cooldown_ns = ?, severity = ?,
			notify_json = ?, escalation_id = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		rule.WorkspaceID, rule.Name, rule.MetricType, rule.ConditionType,
		rule.Condition, rule.CheckInterval.Nanoseconds(), rule.Cooldown.Nanoseconds(), rule.Severity,
		string(notifyJSON), nullString(rule.EscalationID), boolToInt(rule.Enabled), rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", rule.ID)
	}
	return nil
}

func (r *sqliteRuleRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", id)
	}
	return nil
}

func (r *sqliteRuleRepo) List(ctx context.Context, workspaceID string) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE workspace_id = ? ORDER BY name`
	return r.queryRules(ctx, query, workspaceID)
}

func (r *sqliteRuleRepo) ListEnabled(ctx context.Context, workspaceID string) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE workspace_id = ? AND enabled = 1 ORDER BY name`
	return r.queryRules(ctx, query, workspaceID)
}

func (r *sqliteRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE rules SET enabled = ?, updated_at = ? WHERE id = ?",
		boolToInt(enabled), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("rule not found: %s", id)
	}
	return nil
}

func (r *sqliteRuleRepo) TouchEvaluated(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE rules SET last_evaluated_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("touch evaluated: %w", err)
	}
	return nil
}

func (r *sqliteRuleRepo) TouchTriggered(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE rules SET last_triggered_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("touch triggered: %w", err)
	}
	return nil
}

func (r *sqliteRuleRepo) queryRules(ctx context.Context, query string, args ...interface{}) ([]*models.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row scanner) (*models.Rule, error) {
	rule := &models.Rule{}
	var escalationID sql.NullString
	var notifyJSON string
	var checkIntervalNS, cooldownNS int64
	var enabled int
	var lastEvaluated, lastTriggered sql.NullTime

	err := row.Scan(
		&rule.ID, &rule.WorkspaceID, &rule.Name, &rule.MetricType, &rule.ConditionType, &rule.Condition,
		&checkIntervalNS, &cooldownNS, &rule.Severity, &notifyJSON, &escalationID, &enabled,
		&lastEvaluated, &lastTriggered, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.EscalationID = escalationID.String
	rule.CheckInterval = time.Duration(checkIntervalNS)
	rule.Cooldown = time.Duration(cooldownNS)
	rule.Enabled = enabled != 0
	rule.LastEvaluatedAt = timePtr(lastEvaluated)
	rule.LastTriggeredAt = timePtr(lastTriggered)

	if err := json.Unmarshal([]byte(notifyJSON), &rule.Notify); err != nil {
		return nil, fmt.Errorf("unmarshal notify: %w", err)
	}

	return rule, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
