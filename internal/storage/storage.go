// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Rules() RuleRepository
	Alerts() AlertRepository
	Suppressions() SuppressionRepository
	Policies() EscalationPolicyRepository
	Notifications() NotificationRepository
}

// RuleRepository defines operations for monitoring rule management.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.Rule) error
	GetByID(ctx context.Context, id string) (*models.Rule, error)
	Update(ctx context.Context, rule *models.Rule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, workspaceID string) ([]*models.Rule, error)
	ListEnabled(ctx context.Context, workspaceID string) ([]*models.Rule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	// TouchEvaluated stamps last_evaluated_at; called on every evaluation
	// attempt regardless of outcome.
	TouchEvaluated(ctx context.Context, id string, at time.Time) error
	// TouchTriggered stamps last_triggered_at after an alert fires.
	TouchTriggered(ctx context.Context, id string, at time.Time) error
}

// AlertRepository defines operations for alert instances. Alerts are never
// deleted.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, workspaceID string, limit, offset int) ([]*models.Alert, int64, error)
	// ListEscalatable returns unresolved, unacknowledged alerts that
	// reference an escalation policy.
	ListEscalatable(ctx context.Context) ([]*models.Alert, error)
	MarkNotified(ctx context.Context, id string) error
}

// SuppressionRepository defines operations for suppression windows.
type SuppressionRepository interface {
	Create(ctx context.Context, suppression *models.Suppression) error
	List(ctx context.Context, workspaceID string) ([]*models.Suppression, error)
	// ListActive returns windows active at the given time for a workspace.
	ListActive(ctx context.Context, workspaceID string, at time.Time) ([]*models.Suppression, error)
	Delete(ctx context.Context, id string) error
}

// EscalationPolicyRepository defines operations for escalation policies.
type EscalationPolicyRepository interface {
	Create(ctx context.Context, policy *models.EscalationPolicy) error
	GetByID(ctx context.Context, id string) (*models.EscalationPolicy, error)
	Update(ctx context.Context, policy *models.EscalationPolicy) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, workspaceID string) ([]*models.EscalationPolicy, error)
}

// NotificationRepository defines operations for delivery history.
// Append-only.
type NotificationRepository interface {
	Append(ctx context.Context, record *models.NotificationRecord) error
	ListByAlert(ctx context.Context, alertID string, limit, offset int) ([]*models.NotificationRecord, int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
