package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const suppressionColumns = `id, workspace_id, kind, value, reason, starts_at, ends_at, created_by, created_at`

type sqliteSuppressionRepo struct {
	db *sql.DB
}

func (r *sqliteSuppressionRepo) Create(ctx context.Context, s *models.Suppression) error {
	query := `
		INSERT INTO suppressions (` + suppressionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.WorkspaceID, s.Kind, s.Value, nullString(s.Reason),
		s.StartsAt, s.EndsAt, nullString(s.CreatedBy), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert suppression: %w", err)
	}
	return nil
}

func (r *sqliteSuppressionRepo) List(ctx context.Context, workspaceID string) ([]*models.Suppression, error) {
	query := `SELECT ` + suppressionColumns + ` FROM suppressions WHERE workspace_id = ? ORDER BY starts_at DESC`
	return r.querySuppressions(ctx, query, workspaceID)
}

func (r *sqliteSuppressionRepo) ListActive(ctx context.Context, workspaceID string, at time.Time) ([]*models.Suppression, error) {
	query := `
		SELECT ` + suppressionColumns + ` FROM suppressions
		WHERE workspace_id = ? AND starts_at <= ? AND ends_at > ?
		ORDER BY starts_at
	`
	return r.querySuppressions(ctx, query, workspaceID, at, at)
}

func (r *sqliteSuppressionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM suppressions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete suppression: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("suppression not found: %s", id)
	}
	return nil
}

func (r *sqliteSuppressionRepo) querySuppressions(ctx context.Context, query string, args ...interface{}) ([]*models.Suppression, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query suppressions: %w", err)
	}
	defer rows.Close()

	var suppressions []*models.Suppression
	for rows.Next() {
		s := &models.Suppression{}
		var reason, createdBy sql.NullString
		err := rows.Scan(
			&s.ID, &s.WorkspaceID, &s.Kind, &s.Value, &reason,
			&s.StartsAt, &s.EndsAt, &createdBy, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		s.Reason = reason.String
		s.CreatedBy = createdBy.String
		suppressions = append(suppressions, s)
	}
	return suppressions, rows.Err()
}
