package engine

import (
	"sync"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// CooldownManager tracks the last trigger time per rule so a firing rule
// does not re-alert until its cooldown window elapses. State is process-local
// and seeded lazily from the rule's persisted last trigger timestamp, so a
// restart does not reset open windows.
type CooldownManager struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldownManager creates an empty cooldown manager.
func NewCooldownManager() *CooldownManager {
	return &CooldownManager{last: make(map[string]time.Time)}
}

// InCooldown reports whether the rule is inside its cooldown window at now.
// A rule with zero cooldown is never in cooldown.
func (c *CooldownManager) InCooldown(rule *models.Rule, now time.Time) bool {
	if rule.Cooldown <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[rule.ID]
	if !ok {
		if rule.LastTriggeredAt == nil {
			return false
		}
		last = *rule.LastTriggeredAt
		c.last[rule.ID] = last
	}

	return now.Sub(last) < rule.Cooldown
}

// Mark records a trigger at the given time, opening the rule's window.
func (c *CooldownManager) Mark(ruleID string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[ruleID] = at
}

// Clear drops the tracked state for a rule, for example after deletion.
func (c *CooldownManager) Clear(ruleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, ruleID)
}
