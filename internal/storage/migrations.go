package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Monitoring rules table
			CREATE TABLE IF NOT EXISTS rules (
				id TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL,
				name TEXT NOT NULL,
				metric_type TEXT NOT NULL,
				condition_type TEXT NOT NULL,
				condition_json TEXT NOT NULL,
				check_interval_ns INTEGER NOT NULL,
				cooldown_ns INTEGER NOT NULL,
				severity TEXT NOT NULL,
				notify_json TEXT NOT NULL,
				escalation_id TEXT,
				enabled INTEGER NOT NULL DEFAULT 1,
				last_evaluated_at DATETIME,
				last_triggered_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (escalation_id) REFERENCES escalation_policies(id) ON DELETE SET NULL
			);

			-- Alert instances table (append-only lifecycle; never deleted)
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				rule_id TEXT NOT NULL,
				workspace_id TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				severity TEXT NOT NULL,
				metric_type TEXT NOT NULL,
				metric_value REAL NOT NULL,
				threshold_value REAL NOT NULL,
				triggered_at DATETIME NOT NULL,
				acknowledged_at DATETIME,
				acknowledged_by TEXT,
				resolved_at DATETIME,
				resolved_by TEXT,
				resolution_notes TEXT,
				escalated INTEGER NOT NULL DEFAULT 0,
				escalation_level INTEGER NOT NULL DEFAULT 0,
				escalation_id TEXT,
				notification_sent INTEGER NOT NULL DEFAULT 0,
				context_json TEXT,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (rule_id) REFERENCES rules(id) ON DELETE CASCADE
			);

			-- Suppression windows table
			CREATE TABLE IF NOT EXISTS suppressions (
				id TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				value TEXT NOT NULL,
				reason TEXT,
				starts_at DATETIME NOT NULL,
				ends_at DATETIME NOT NULL,
				created_by TEXT,
				created_at DATETIME NOT NULL
			);

			-- Escalation policies table
			CREATE TABLE IF NOT EXISTS escalation_policies (
				id TEXT PRIMARY KEY,
				workspace_id TEXT NOT NULL,
				name TEXT NOT NULL,
				levels_json TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Notification delivery history (append-only)
			CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				alert_id TEXT NOT NULL,
				channel TEXT NOT NULL,
				recipient TEXT NOT NULL,
				status TEXT NOT NULL,
				error TEXT,
				response TEXT,
				retries INTEGER NOT NULL DEFAULT 0,
				sent_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (alert_id) REFERENCES alerts(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_rules_workspace ON rules(workspace_id);
			CREATE INDEX IF NOT EXISTS idx_rules_enabled ON rules(workspace_id, enabled);
			CREATE INDEX IF NOT EXISTS idx_alerts_workspace ON alerts(workspace_id, triggered_at);
			CREATE INDEX IF NOT EXISTS idx_alerts_rule ON alerts(rule_id);
			CREATE INDEX IF NOT EXISTS idx_alerts_open ON alerts(resolved_at) WHERE resolved_at IS NULL;
			CREATE INDEX IF NOT EXISTS idx_suppressions_window ON suppressions(workspace_id, starts_at, ends_at);
			CREATE INDEX IF NOT EXISTS idx_policies_workspace ON escalation_policies(workspace_id);
			CREATE INDEX IF NOT EXISTS idx_notifications_alert ON notifications(alert_id);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
