package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const alertColumns = `id, rule_id, workspace_id, title, message, severity, metric_type,
	metric_value, threshold_value, triggered_at, acknowledged_at, acknowledged_by,
	resolved_at, resolved_by, resolution_notes, escalated, escalation_level,
	escalation_id, notification_sent, context_json, created_at`

type sqliteAlertRepo struct {
	db *sql.DB
}

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.RuleID, alert.WorkspaceID, alert.Title, alert.Message, alert.Severity,
		alert.MetricType, alert.MetricValue, alert.ThresholdValue, alert.TriggeredAt,
		nullTime(alert.AcknowledgedAt), nullString(alert.AcknowledgedBy),
		nullTime(alert.ResolvedAt), nullString(alert.ResolvedBy), nullString(alert.ResolutionNotes),
		boolToInt(alert.Escalated), alert.EscalationLevel, nullString(alert.EscalationID),
		boolToInt(alert.NotificationSent), nullString(alert.Context), alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	return alert, nil
}

func (r *sqliteAlertRepo) Update(ctx context.Context, alert *models.Alert) error {
	query := `
		UPDATE alerts SET acknowledged_at = ?, acknowledged_by = ?, resolved_at = ?,
			resolved_by = ?, resolution_notes = ?, escalated = ?, escalation_level = ?,
			notification_sent = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		nullTime(alert.AcknowledgedAt), nullString(alert.AcknowledgedBy),
		nullTime(alert.ResolvedAt), nullString(alert.ResolvedBy), nullString(alert.ResolutionNotes),
		boolToInt(alert.Escalated), alert.EscalationLevel,
		boolToInt(alert.NotificationSent),
		alert.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", alert.ID)
	}
	return nil
}

func (r *sqliteAlertRepo) List(ctx context.Context, workspaceID string, limit, offset int) ([]*models.Alert, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE workspace_id = ?", workspaceID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	query := `
		SELECT ` + alertColumns + ` FROM alerts
		WHERE workspace_id = ?
		ORDER BY triggered_at DESC
		LIMIT ? OFFSET ?
	`
	alerts, err := r.queryAlerts(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *sqliteAlertRepo) ListEscalatable(ctx context.Context) ([]*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + ` FROM alerts
		WHERE resolved_at IS NULL AND acknowledged_at IS NULL AND escalation_id IS NOT NULL
		ORDER BY triggered_at ASC
	`
	return r.queryAlerts(ctx, query)
}

func (r *sqliteAlertRepo) MarkNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET notification_sent = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanAlert(row scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var ackBy, resolvedBy, notes, escalationID, contextJSON sql.NullString
	var ackAt, resolvedAt sql.NullTime
	var escalated, notified int

	err := row.Scan(
		&alert.ID, &alert.RuleID, &alert.WorkspaceID, &alert.Title, &alert.Message, &alert.Severity,
		&alert.MetricType, &alert.MetricValue, &alert.ThresholdValue, &alert.TriggeredAt,
		&ackAt, &ackBy, &resolvedAt, &resolvedBy, &notes,
		&escalated, &alert.EscalationLevel, &escalationID, &notified, &contextJSON, &alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.AcknowledgedAt = timePtr(ackAt)
	alert.AcknowledgedBy = ackBy.String
	alert.ResolvedAt = timePtr(resolvedAt)
	alert.ResolvedBy = resolvedBy.String
	alert.ResolutionNotes = notes.String
	alert.Escalated = escalated != 0
	alert.EscalationID = escalationID.String
	alert.NotificationSent = notified != 0
	alert.Context = contextJSON.String

	return alert, nil
}
