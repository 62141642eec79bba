package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const notificationColumns = `id, alert_id, channel, recipient, status, error, response, retries, sent_at, created_at`

type sqliteNotificationRepo struct {
	db *sql.DB
}

func (r *sqliteNotificationRepo) Append(ctx context.Context, record *models.NotificationRecord) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.AlertID, record.Channel, record.Recipient, record.Status,
		nullString(record.Error), nullString(record.Response), record.Retries,
		record.SentAt, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) ListByAlert(ctx context.Context, alertID string, limit, offset int) ([]*models.NotificationRecord, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE alert_id = ?", alertID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE alert_id = ?
		ORDER BY sent_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, alertID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var records []*models.NotificationRecord
	for rows.Next() {
		record := &models.NotificationRecord{}
		var errDetail, response sql.NullString
		err := rows.Scan(
			&record.ID, &record.AlertID, &record.Channel, &record.Recipient, &record.Status,
			&errDetail, &response, &record.Retries, &record.SentAt, &record.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		record.Error = errDetail.String
		record.Response = response.String
		records = append(records, record)
	}
	return records, total, rows.Err()
}

func (r *sqliteNotificationRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE created_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return result.RowsAffected()
}
