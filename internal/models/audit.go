package models

import "time"

// AuditEventType identifies a rule lifecycle event.
type AuditEventType string

const (
	AuditRuleCreated    AuditEventType = "rule_created"
	AuditRuleEdited     AuditEventType = "rule_edited"
	AuditRuleReinforced AuditEventType = "rule_reinforced"
	AuditRuleApplied    AuditEventType = "rule_applied"
	AuditRuleArchived   AuditEventType = "rule_archived"
	AuditRuleDeleted    AuditEventType = "rule_deleted"
	AuditRuleDecayed    AuditEventType = "rule_decayed"
)

// AuditEvent records a single rule lifecycle event for transparency.
// Events are append-only; the decay sweep and the rule service both emit them.
type AuditEvent struct {
	ID        int64          `json:"id" yaml:"id"`
	UserID    string         `json:"user_id" yaml:"user_id"`
	RuleID    string         `json:"rule_id" yaml:"rule_id"`
	Type      AuditEventType `json:"type" yaml:"type"`
	Data      map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}
