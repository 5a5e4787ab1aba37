package service

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nvandessel/ruleloop/internal/dedup"
	"github.com/nvandessel/ruleloop/internal/extraction"
	"github.com/nvandessel/ruleloop/internal/llm"
	"github.com/nvandessel/ruleloop/internal/models"
	"github.com/nvandessel/ruleloop/internal/prompts"
	"github.com/nvandessel/ruleloop/internal/sanitize"
	"github.com/nvandessel/ruleloop/internal/selection"
	"github.com/nvandessel/ruleloop/internal/store"
)

// ChatResult is one completed chat turn.
type ChatResult struct {
	InteractionID string
	Response      string

	// RulesApplied lists the IDs of the rules injected into the prompt.
	RulesApplied []string
}

// InteractionService runs the two learning-loop flows: the chat turn that
// applies rules, and the feedback turn that learns from corrections.
type InteractionService struct {
	store    store.Store
	rules    *RuleService
	pipeline *extraction.Pipeline
	provider llm.Provider
	selCfg   selection.Config
	logger   *log.Logger
}

// NewInteractionService creates an InteractionService.
func NewInteractionService(st store.Store, rules *RuleService, pipeline *extraction.Pipeline, provider llm.Provider, selCfg selection.Config, logger *log.Logger) *InteractionService {
	if logger == nil {
		logger = log.Default()
	}
	return &InteractionService{
		store:    st,
		rules:    rules,
		pipeline: pipeline,
		provider: provider,
		selCfg:   selCfg,
		logger:   logger,
	}
}

// Chat runs one assistant turn: load the user's rule snapshot, select the
// relevant rules under budget, build the system prompt, generate, persist
// the interaction, and mark the selected rules applied.
//
// A failed context embedding degrades to confidence-only ranking; a failed
// generation fails the turn.
func (s *InteractionService) Chat(ctx context.Context, userID, conversationID, message string) (*ChatResult, error) {
	active, err := s.rules.ActiveRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("chat: load rules: %w", err)
	}

	var contextEmbedding []float32
	if vec, embErr := s.provider.Embed(ctx, message); embErr == nil {
		contextEmbedding = vec
	} else {
		s.logger.Warn("context embedding failed, ranking by confidence only", "err", embErr)
	}

	now := time.Now().UTC()
	selected := selection.SelectForPrompt(active, contextEmbedding, s.selCfg, now)
	systemPrompt := prompts.BuildSystemPrompt(selected)

	response, err := s.provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: message},
	}, llm.GenerateOptions{})
	if err != nil {
		return nil, fmt.Errorf("chat: generate: %w", err)
	}

	appliedIDs := make([]string, len(selected))
	for i, r := range selected {
		appliedIDs[i] = r.ID
	}

	interaction := models.Interaction{
		ID:                models.NewInteractionID(),
		UserID:            userID,
		ConversationID:    conversationID,
		UserMessage:       message,
		AssistantResponse: response,
		RulesApplied:      appliedIDs,
		CreatedAt:         now,
	}
	if err := s.store.CreateInteraction(ctx, interaction); err != nil {
		return nil, fmt.Errorf("chat: store interaction: %w", err)
	}

	if err := s.rules.MarkApplied(ctx, userID, appliedIDs); err != nil {
		s.logger.Warn("failed to mark rules applied", "err", err)
	}

	return &ChatResult{
		InteractionID: interaction.ID,
		Response:      response,
		RulesApplied:  appliedIDs,
	}, nil
}

// Feedback processes a user correction of a previous interaction: run the
// extraction pipeline against the user's active rules, then persist the
// outcome (a new rule, or a reinforcement of the duplicate it matched) and
// write the correction back onto the interaction.
func (s *InteractionService) Feedback(ctx context.Context, userID, interactionID, correction string) (models.ExtractionResult, error) {
	interaction, err := s.store.GetInteraction(ctx, interactionID)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("feedback: %w", err)
	}
	if interaction.UserID != userID {
		return models.ExtractionResult{}, fmt.Errorf("feedback: interaction %s: %w", interactionID, store.ErrNotFound)
	}

	active, err := s.rules.List(ctx, userID, models.StatusActive)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("feedback: load rules: %w", err)
	}

	result := s.pipeline.Process(ctx, correction, interaction.AssistantResponse, active)
	now := time.Now().UTC()

	switch result.Status {
	case models.ExtractionRuleCreated:
		rule := *result.Rule
		rule.ID = models.NewRuleID()
		rule.UserID = userID
		rule.CreatedAt = now
		rule.UpdatedAt = now
		if err := s.store.CreateRule(ctx, rule); err != nil {
			return models.ExtractionResult{}, fmt.Errorf("feedback: persist rule: %w", err)
		}
		result.Rule = &rule
		s.rules.afterWrite(ctx, rule, models.AuditRuleCreated, map[string]any{"content": rule.Content}, now)
		s.rules.indexAdd(ctx, rule)
		s.markCorrected(ctx, interactionID, correction, rule.ID)

	case models.ExtractionDuplicateFound:
		oldConfidence := result.Existing.Confidence
		merged := dedup.Merge(*result.Existing, now)
		if err := s.store.UpdateRule(ctx, merged); err != nil {
			return models.ExtractionResult{}, fmt.Errorf("feedback: reinforce rule: %w", err)
		}
		result.Existing = &merged
		s.rules.afterWrite(ctx, merged, models.AuditRuleReinforced, map[string]any{
			"old_confidence": oldConfidence,
			"new_confidence": merged.Confidence,
		}, now)
		s.markCorrected(ctx, interactionID, correction, merged.ID)

	case models.ExtractionFailed:
		// Still a correction; record it on the interaction even though no
		// rule came out of it.
		s.markCorrected(ctx, interactionID, correction, "")
	}

	return result, nil
}

func (s *InteractionService) markCorrected(ctx context.Context, interactionID, correction, ruleID string) {
	clean := sanitize.Content(correction)
	if err := s.store.MarkCorrected(ctx, interactionID, clean, ruleID); err != nil {
		s.logger.Warn("failed to mark interaction corrected", "interaction", interactionID, "err", err)
	}
}
