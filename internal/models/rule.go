// Package models defines the core data types for the ruleloop system:
// learned rules, chat interactions, audit events, and extraction results.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RuleCategory classifies what aspect of assistant behavior a rule governs.
type RuleCategory string

const (
	CategoryStyle      RuleCategory = "style"
	CategoryTone       RuleCategory = "tone"
	CategoryFormatting RuleCategory = "formatting"
	CategoryLogic      RuleCategory = "logic"
	CategorySafety     RuleCategory = "safety"
)

// CategoryPrecedence is the fixed presentation order for rule categories.
// Safety and logic rules are always surfaced ahead of stylistic ones,
// regardless of relevance score.
var CategoryPrecedence = []RuleCategory{
	CategorySafety,
	CategoryLogic,
	CategoryFormatting,
	CategoryStyle,
	CategoryTone,
}

// ValidCategory reports whether c is one of the known rule categories.
func ValidCategory(c RuleCategory) bool {
	switch c {
	case CategoryStyle, CategoryTone, CategoryFormatting, CategoryLogic, CategorySafety:
		return true
	}
	return false
}

// RuleStatus is the lifecycle state of a rule.
type RuleStatus string

const (
	// StatusActive rules participate in duplicate checking and selection.
	StatusActive RuleStatus = "active"

	// StatusArchived rules were retired by the decay sweep or an explicit
	// archive action. They are excluded from selection but kept for audit.
	StatusArchived RuleStatus = "archived"

	// StatusDisabled rules are excluded from duplicate checking and
	// selection but remain addressable by ID for toggling.
	StatusDisabled RuleStatus = "disabled"
)

// Confidence bounds. Confidence is always clamped into this range;
// decay never pushes a rule below the floor and reinforcement never
// pushes it above the ceiling.
const (
	ConfidenceFloor   = 0.1
	ConfidenceCeiling = 0.95

	// BaseConfidence is the starting confidence for newly learned rules.
	BaseConfidence = 0.5
)

// Rule represents a learned behavioral preference extracted from a user
// correction (or created manually).
type Rule struct {
	ID     string `json:"id" yaml:"id"`
	UserID string `json:"user_id" yaml:"user_id"`

	// Content is the generalized instruction in imperative form,
	// e.g. "Use bullet points for lists".
	Content string `json:"content" yaml:"content"`

	// OriginalCorrection is the verbatim user text that produced this
	// rule. Empty for manually created rules.
	OriginalCorrection string `json:"original_correction,omitempty" yaml:"original_correction,omitempty"`

	Category RuleCategory `json:"category" yaml:"category"`

	// Confidence is the current trust score in [ConfidenceFloor, ConfidenceCeiling].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	TimesApplied    int `json:"times_applied" yaml:"times_applied"`
	TimesReinforced int `json:"times_reinforced" yaml:"times_reinforced"`

	Status RuleStatus `json:"status" yaml:"status"`

	CreatedAt        time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"updated_at"`
	LastAppliedAt    *time.Time `json:"last_applied_at,omitempty" yaml:"last_applied_at,omitempty"`
	LastReinforcedAt *time.Time `json:"last_reinforced_at,omitempty" yaml:"last_reinforced_at,omitempty"`

	// Embedding is produced once at creation or content update. It may be
	// absent when embedding generation failed; duplicate detection and
	// relevance ranking then degrade to a neutral default.
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// HasEmbedding reports whether the rule carries an embedding vector.
func (r *Rule) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// NewRuleID returns a fresh opaque rule identifier.
func NewRuleID() string {
	return uuid.NewString()
}

// ClampConfidence bounds c into [ConfidenceFloor, ConfidenceCeiling].
func ClampConfidence(c float64) float64 {
	if c < ConfidenceFloor {
		return ConfidenceFloor
	}
	if c > ConfidenceCeiling {
		return ConfidenceCeiling
	}
	return c
}
