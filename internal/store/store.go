// Package store persists rules, interactions, and audit events.
// The SQLite implementation is the only backend; the interfaces exist so
// services and the sweep can be tested against exactly what they use.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/ruleloop/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RuleTransition is one rule's state change computed by a decay sweep.
// Transitions are applied in a single transaction: either every rule in the
// batch moves to its new state or none do.
type RuleTransition struct {
	RuleID     string
	UserID     string
	Confidence float64
	Status     models.RuleStatus
}

// RuleStore persists rules.
type RuleStore interface {
	// CreateRule inserts a new rule. The rule must carry an ID.
	CreateRule(ctx context.Context, rule models.Rule) error

	// GetRule returns the rule with the given ID, or ErrNotFound.
	GetRule(ctx context.Context, id string) (*models.Rule, error)

	// UpdateRule replaces the stored rule. Returns ErrNotFound if absent.
	UpdateRule(ctx context.Context, rule models.Rule) error

	// DeleteRule removes the rule. Returns ErrNotFound if absent.
	DeleteRule(ctx context.Context, id string) error

	// ListRules returns a user's rules, newest first. With no statuses
	// given, all statuses are included.
	ListRules(ctx context.Context, userID string, statuses ...models.RuleStatus) ([]models.Rule, error)

	// ListActiveRules returns every active rule across all users.
	// Used by the decay sweep.
	ListActiveRules(ctx context.Context) ([]models.Rule, error)

	// MarkApplied bumps times_applied and last_applied_at for the given
	// rules in one transaction. Unknown IDs are skipped.
	MarkApplied(ctx context.Context, ruleIDs []string, now time.Time) error

	// ApplyTransitions commits a sweep batch atomically.
	ApplyTransitions(ctx context.Context, transitions []RuleTransition, now time.Time) error
}

// InteractionStore persists chat interactions.
type InteractionStore interface {
	// CreateInteraction inserts a new interaction.
	CreateInteraction(ctx context.Context, in models.Interaction) error

	// GetInteraction returns the interaction with the given ID, or ErrNotFound.
	GetInteraction(ctx context.Context, id string) (*models.Interaction, error)

	// ListInteractions returns a user's interactions, newest first,
	// limited to limit entries (0 means no limit).
	ListInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error)

	// MarkCorrected records that the interaction drew a correction.
	// extractedRuleID may be empty when no rule resulted.
	MarkCorrected(ctx context.Context, id, correctionText, extractedRuleID string) error
}

// AuditStore appends and reads rule lifecycle events.
type AuditStore interface {
	// AppendAudit records one event. The event's ID is assigned by the store.
	AppendAudit(ctx context.Context, ev models.AuditEvent) error

	// ListAuditEvents returns events for a user, newest first, limited to
	// limit entries (0 means no limit). ruleID narrows to one rule when
	// non-empty.
	ListAuditEvents(ctx context.Context, userID, ruleID string, limit int) ([]models.AuditEvent, error)
}

// Store is the full persistence surface backed by one database.
type Store interface {
	RuleStore
	InteractionStore
	AuditStore

	Close() error
}
