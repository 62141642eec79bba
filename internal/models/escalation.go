package models

import (
	"sort"
	"time"
)

// EscalationLevel is one step of an escalation policy.
type EscalationLevel struct {
	Level  int           `json:"level"`
	Delay  time.Duration `json:"delay"` // elapsed time since trigger before this level applies
	Notify []string      `json:"notify"`
}

// EscalationPolicy is an ordered list of time-delayed notification levels
// applied to an unacknowledged, unresolved alert.
type EscalationPolicy struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspace_id"`
	Name        string            `json:"name"`
	Levels      []EscalationLevel `json:"levels"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NextLevel returns the lowest level strictly above current whose delay has
// elapsed since triggeredAt. Levels are never skipped: the candidate must be
// exactly current+1 in level order.
func (p *EscalationPolicy) NextLevel(current int, triggeredAt, now time.Time) (EscalationLevel, bool) {
	levels := make([]EscalationLevel, len(p.Levels))
	copy(levels, p.Levels)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	elapsed := now.Sub(triggeredAt)
	for _, lvl := range levels {
		if lvl.Level <= current {
			continue
		}
		if elapsed >= lvl.Delay {
			return lvl, true
		}
		// Lowest pending level not yet due; later levels cannot be due earlier.
		break
	}
	return EscalationLevel{}, false
}
