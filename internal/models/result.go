package models

// ExtractionStatus tags the terminal outcome of the correction pipeline.
type ExtractionStatus string

const (
	// ExtractionRuleCreated means a new rule draft was produced and should
	// be persisted by the caller.
	ExtractionRuleCreated ExtractionStatus = "rule_created"

	// ExtractionDuplicateFound means a semantically equivalent rule already
	// exists; the caller should reinforce it instead of creating a new one.
	ExtractionDuplicateFound ExtractionStatus = "duplicate_found"

	// ExtractionFailed means no clear rule could be extracted.
	ExtractionFailed ExtractionStatus = "extraction_failed"

	// ExtractionNotACorrection means the message was not judged to be a
	// correction of the previous response.
	ExtractionNotACorrection ExtractionStatus = "not_a_correction"
)

// ExtractionResult is the transient outcome of processing one correction
// event. Exactly one of Rule or Existing is set, depending on Status.
// It is never stored; the caller persists or reinforces accordingly.
type ExtractionResult struct {
	Status ExtractionStatus `json:"status"`

	// Rule is the new rule draft when Status == ExtractionRuleCreated.
	// ID, UserID, and timestamps are left for the caller to assign.
	Rule *Rule `json:"rule,omitempty"`

	// Existing is the matched rule when Status == ExtractionDuplicateFound.
	Existing *Rule `json:"existing_rule,omitempty"`

	// Message is a human-readable explanation of the outcome.
	Message string `json:"message,omitempty"`
}
