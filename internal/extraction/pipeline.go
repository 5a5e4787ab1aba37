// Package extraction implements the correction-to-rule pipeline: correction
// detection, rule extraction, duplicate checking, and embedding attach.
// Every external-call failure degrades to a classified ExtractionResult;
// the pipeline never leaves a correction in an ambiguous state.
package extraction

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nvandessel/ruleloop/internal/dedup"
	"github.com/nvandessel/ruleloop/internal/llm"
	"github.com/nvandessel/ruleloop/internal/models"
	"github.com/nvandessel/ruleloop/internal/prompts"
	"github.com/nvandessel/ruleloop/internal/sanitize"
)

// Config holds pipeline configuration.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity for an
	// extracted rule to count as a duplicate of an existing one.
	SimilarityThreshold float64

	// MinDetectionConfidence is the detection confidence below which a
	// message is classified as not a correction.
	MinDetectionConfidence float64
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:    dedup.DefaultSimilarityThreshold,
		MinDetectionConfidence: 0.5,
	}
}

// Detection is the outcome of the correction-detection stage.
type Detection struct {
	IsCorrection bool    `json:"is_correction"`
	Type         string  `json:"correction_type"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning,omitempty"`
}

// correctionKeywords is the fallback heuristic used when the extraction
// service is unavailable. Case-insensitive substring match.
var correctionKeywords = []string{
	"don't", "dont", "stop", "never", "always",
	"instead", "rather", "prefer", "please use",
	"not like", "wrong", "fix", "change",
}

// Pipeline turns a free-text correction into a structured, deduplicated
// rule draft. It owns no persistence; callers persist or reinforce based on
// the returned ExtractionResult.
type Pipeline struct {
	provider llm.Provider
	config   Config
	logger   *log.Logger
}

// NewPipeline creates a Pipeline with the given provider and config.
// If config is nil, defaults are used.
func NewPipeline(provider llm.Provider, config *Config, logger *log.Logger) *Pipeline {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = dedup.DefaultSimilarityThreshold
	}
	if cfg.MinDetectionConfidence <= 0 {
		cfg.MinDetectionConfidence = 0.5
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{provider: provider, config: cfg, logger: logger}
}

// DetectCorrection asks the extraction service whether userMessage corrects
// previousResponse. When the service call fails, it falls back to the
// keyword heuristic: a match yields a style correction at confidence 0.5,
// no match yields not-a-correction at confidence 0. Never returns an error.
func (p *Pipeline) DetectCorrection(ctx context.Context, userMessage, previousResponse string) Detection {
	prompt := prompts.CorrectionDetectionPrompt(userMessage, previousResponse)

	var detection Detection
	err := p.provider.ExtractJSON(ctx, prompt, prompts.ExtractionSystemPrompt, &detection)
	if err == nil {
		return detection
	}

	p.logger.Warn("correction detection fell back to keyword heuristic", "err", err)

	lower := strings.ToLower(userMessage)
	for _, kw := range correctionKeywords {
		if strings.Contains(lower, kw) {
			return Detection{IsCorrection: true, Type: "style", Confidence: 0.5}
		}
	}
	return Detection{IsCorrection: false, Type: "none", Confidence: 0.0}
}

// extractionResponse mirrors the JSON shape of the rule extraction prompt.
// IsValid is a pointer so an omitted field counts as valid.
type extractionResponse struct {
	Rule      string `json:"rule"`
	Category  string `json:"category"`
	Reasoning string `json:"reasoning,omitempty"`
	IsValid   *bool  `json:"is_valid"`
}

// Process runs the full pipeline over one correction event. Stages run
// strictly in order and each may short-circuit to a terminal result:
//
//  1. Correction detection (service, keyword fallback)
//  2. Rule extraction (service)
//  3. Duplicate check (embedding + first-match scan of existing rules)
//  4. Embedding attach (best effort)
//
// existing should contain only the user's active rules; disabled and
// archived rules never participate in duplicate detection.
func (p *Pipeline) Process(ctx context.Context, correction, previousResponse string, existing []models.Rule) models.ExtractionResult {
	// Stage 1: is this a correction at all?
	detection := p.DetectCorrection(ctx, correction, previousResponse)
	if !detection.IsCorrection || detection.Confidence < p.config.MinDetectionConfidence {
		return models.ExtractionResult{
			Status:  models.ExtractionNotACorrection,
			Message: "Message was not judged to be a correction",
		}
	}

	// Stage 2: generalize the correction into an imperative rule.
	draft, ok := p.extractRule(ctx, correction, previousResponse)
	if !ok {
		return models.ExtractionResult{
			Status:  models.ExtractionFailed,
			Message: "Could not extract a clear rule from this correction",
		}
	}

	// Stage 3: duplicate check. An embedding failure here degrades to
	// "no duplicate found" rather than an error.
	embedding, err := p.provider.Embed(ctx, draft.Content)
	if err != nil {
		p.logger.Warn("duplicate check skipped: embedding failed", "err", err)
		embedding = nil
	}
	if len(embedding) > 0 {
		if existingRule := dedup.FindSimilar(embedding, existing, p.config.SimilarityThreshold); existingRule != nil {
			return models.ExtractionResult{
				Status:   models.ExtractionDuplicateFound,
				Existing: existingRule,
				Message:  "This preference already exists and has been reinforced",
			}
		}
	}

	// Stage 4: attach the embedding. Retry once if stage 3's attempt
	// failed; a missing embedding is non-fatal and only degrades future
	// duplicate detection and relevance ranking for this rule.
	if len(embedding) == 0 {
		if retried, retryErr := p.provider.Embed(ctx, draft.Content); retryErr == nil {
			embedding = retried
		} else {
			p.logger.Warn("rule stored without embedding", "err", retryErr)
		}
	}
	draft.Embedding = embedding

	return models.ExtractionResult{
		Status:  models.ExtractionRuleCreated,
		Rule:    draft,
		Message: "Learned preference: " + draft.Content,
	}
}

// extractRule runs the rule-extraction stage. Returns false when the
// service call fails, reports the input invalid, or yields no rule text.
func (p *Pipeline) extractRule(ctx context.Context, correction, previousResponse string) (*models.Rule, bool) {
	prompt := prompts.RuleExtractionPrompt(correction, previousResponse)

	var resp extractionResponse
	if err := p.provider.ExtractJSON(ctx, prompt, prompts.ExtractionSystemPrompt, &resp); err != nil {
		p.logger.Warn("rule extraction failed", "err", err)
		return nil, false
	}

	if resp.IsValid != nil && !*resp.IsValid {
		return nil, false
	}

	content := sanitize.Content(resp.Rule)
	if content == "" {
		return nil, false
	}

	category := models.RuleCategory(resp.Category)
	if !models.ValidCategory(category) {
		category = models.CategoryStyle
	}

	return &models.Rule{
		Content:            content,
		Category:           category,
		OriginalCorrection: sanitize.Content(correction),
		Confidence:         models.BaseConfidence,
		Status:             models.StatusActive,
	}, true
}
