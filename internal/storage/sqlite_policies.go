package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

const policyColumns = `id, workspace_id, name, levels_json, created_at, updated_at`

type sqlitePolicyRepo struct {
	db *sql.DB
}

func (r *sqlitePolicyRepo) Create(ctx context.Context, policy *models.EscalationPolicy) error {
	levelsJSON, err := json.Marshal(policy.Levels)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}

	query := `
		INSERT INTO escalation_policies (` + policyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		policy.ID, policy.WorkspaceID, policy.Name, string(levelsJSON),
		policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (r *sqlitePolicyRepo) GetByID(ctx context.Context, id string) (*models.EscalationPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM escalation_policies WHERE id = ?`
	policy, err := scanPolicy(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	return policy, nil
}

func (r *sqlitePolicyRepo) Update(ctx context.Context, policy *models.EscalationPolicy) error {
	levelsJSON, err := json.Marshal(policy.Levels)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}

	query := `
		UPDATE escalation_policies SET name = ?, levels_json = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		policy.Name, string(levelsJSON), policy.UpdatedAt, policy.ID)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("policy not found: %s", policy.ID)
	}
	return nil
}

func (r *sqlitePolicyRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM escalation_policies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("policy not found: %s", id)
	}
	return nil
}

func (r *sqlitePolicyRepo) List(ctx context.Context, workspaceID string) ([]*models.EscalationPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM escalation_policies WHERE workspace_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.EscalationPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

func scanPolicy(row scanner) (*models.EscalationPolicy, error) {
	policy := &models.EscalationPolicy{}
	var levelsJSON string

	err := row.Scan(
		&policy.ID, &policy.WorkspaceID, &policy.Name, &levelsJSON,
		&policy.CreatedAt, &policy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(levelsJSON), &policy.Levels); err != nil {
		return nil, fmt.Errorf("unmarshal levels: %w", err)
	}

	return policy, nil
}
