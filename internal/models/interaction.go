package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction represents one chat exchange: the user's message, the
// assistant's response, and any correction that followed it.
type Interaction struct {
	ID     string `json:"id" yaml:"id"`
	UserID string `json:"user_id" yaml:"user_id"`

	ConversationID string `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`

	UserMessage       string `json:"user_message" yaml:"user_message"`
	AssistantResponse string `json:"assistant_response" yaml:"assistant_response"`

	// RulesApplied holds the IDs of the rules injected into the prompt
	// that produced AssistantResponse.
	RulesApplied []string `json:"rules_applied,omitempty" yaml:"rules_applied,omitempty"`

	// Correction write-back. Set when a later user turn corrected this
	// response and (if extraction succeeded) which rule it produced.
	WasCorrected    bool   `json:"was_corrected" yaml:"was_corrected"`
	CorrectionText  string `json:"correction_text,omitempty" yaml:"correction_text,omitempty"`
	ExtractedRuleID string `json:"extracted_rule_id,omitempty" yaml:"extracted_rule_id,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewInteractionID returns a fresh opaque interaction identifier.
func NewInteractionID() string {
	return uuid.NewString()
}
