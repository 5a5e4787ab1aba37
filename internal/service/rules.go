// Package service orchestrates the stores, cache, vector index, extraction
// pipeline, and providers behind the operations the CLI exposes.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nvandessel/ruleloop/internal/cache"
	"github.com/nvandessel/ruleloop/internal/dedup"
	"github.com/nvandessel/ruleloop/internal/llm"
	"github.com/nvandessel/ruleloop/internal/models"
	"github.com/nvandessel/ruleloop/internal/sanitize"
	"github.com/nvandessel/ruleloop/internal/store"
	"github.com/nvandessel/ruleloop/internal/vectorindex"
)

// RuleService manages the rule lifecycle: manual CRUD, toggling,
// reinforcement, and the bookkeeping shared with the learning flows.
// Every mutation records an audit event and invalidates the owner's
// cached rule snapshot.
type RuleService struct {
	store  store.Store
	cache  *cache.RuleCache
	index  vectorindex.VectorIndex
	embed  llm.Provider
	logger *log.Logger
}

// NewRuleService creates a RuleService. cache, index, and embed may be nil;
// the corresponding side effects are skipped.
func NewRuleService(st store.Store, ruleCache *cache.RuleCache, index vectorindex.VectorIndex, embed llm.Provider, logger *log.Logger) *RuleService {
	if logger == nil {
		logger = log.Default()
	}
	return &RuleService{
		store:  st,
		cache:  ruleCache,
		index:  index,
		embed:  embed,
		logger: logger,
	}
}

// Create adds a manually authored rule. Content is sanitized; an invalid
// category falls back to style. Embedding generation is best effort.
func (s *RuleService) Create(ctx context.Context, userID, content string, category models.RuleCategory) (*models.Rule, error) {
	clean := sanitize.Content(content)
	if clean == "" {
		return nil, fmt.Errorf("create rule: empty content")
	}
	if !models.ValidCategory(category) {
		category = models.CategoryStyle
	}

	now := time.Now().UTC()
	rule := models.Rule{
		ID:         models.NewRuleID(),
		UserID:     userID,
		Content:    clean,
		Category:   category,
		Confidence: models.BaseConfidence,
		Status:     models.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if s.embed != nil {
		if vec, err := s.embed.Embed(ctx, clean); err == nil {
			rule.Embedding = vec
		} else {
			s.logger.Warn("rule created without embedding", "err", err)
		}
	}

	if err := s.store.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, rule, models.AuditRuleCreated, map[string]any{"content": rule.Content}, now)
	s.indexAdd(ctx, rule)
	return &rule, nil
}

// Get returns the rule with the given ID.
func (s *RuleService) Get(ctx context.Context, id string) (*models.Rule, error) {
	return s.store.GetRule(ctx, id)
}

// List returns a user's rules, optionally filtered by status.
func (s *RuleService) List(ctx context.Context, userID string, statuses ...models.RuleStatus) ([]models.Rule, error) {
	return s.store.ListRules(ctx, userID, statuses...)
}

// ActiveRules returns the user's active rules, served from the cache when
// fresh. The chat path calls this once per turn.
func (s *RuleService) ActiveRules(ctx context.Context, userID string) ([]models.Rule, error) {
	if s.cache != nil {
		if rules, ok := s.cache.Get(userID); ok {
			return rules, nil
		}
	}
	rules, err := s.store.ListRules(ctx, userID, models.StatusActive)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(userID, rules)
	}
	return rules, nil
}

// Edit replaces a rule's content. The embedding is regenerated best effort
// so duplicate detection keeps matching the new text.
func (s *RuleService) Edit(ctx context.Context, id, content string) (*models.Rule, error) {
	clean := sanitize.Content(content)
	if clean == "" {
		return nil, fmt.Errorf("edit rule %s: empty content", id)
	}

	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	old := rule.Content
	rule.Content = clean
	rule.UpdatedAt = now
	rule.Embedding = nil
	if s.embed != nil {
		if vec, embErr := s.embed.Embed(ctx, clean); embErr == nil {
			rule.Embedding = vec
		} else {
			s.logger.Warn("edited rule left without embedding", "rule", id, "err", embErr)
		}
	}

	if err := s.store.UpdateRule(ctx, *rule); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, *rule, models.AuditRuleEdited, map[string]any{"old": old, "new": clean}, now)
	s.indexAdd(ctx, *rule)
	return rule, nil
}

// Toggle flips a rule between active and disabled. Archived rules cannot be
// toggled; restore them explicitly by editing status via a new rule.
func (s *RuleService) Toggle(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	switch rule.Status {
	case models.StatusActive:
		rule.Status = models.StatusDisabled
	case models.StatusDisabled:
		rule.Status = models.StatusActive
	default:
		return nil, fmt.Errorf("toggle rule %s: cannot toggle %s rule", id, rule.Status)
	}

	now := time.Now().UTC()
	rule.UpdatedAt = now
	if err := s.store.UpdateRule(ctx, *rule); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, *rule, models.AuditRuleEdited, map[string]any{"status": string(rule.Status)}, now)
	return rule, nil
}

// Archive retires a rule manually.
func (s *RuleService) Archive(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Status == models.StatusArchived {
		return rule, nil
	}

	now := time.Now().UTC()
	rule.Status = models.StatusArchived
	rule.UpdatedAt = now
	if err := s.store.UpdateRule(ctx, *rule); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, *rule, models.AuditRuleArchived, nil, now)
	s.indexRemove(ctx, rule.ID)
	return rule, nil
}

// Delete removes a rule permanently.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, *rule, models.AuditRuleDeleted, nil, time.Now().UTC())
	s.indexRemove(ctx, id)
	return nil
}

// Reinforce applies a reinforcement to a rule: counter up, confidence up a
// step (capped at the ceiling), last_reinforced_at set.
func (s *RuleService) Reinforce(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	merged := dedup.Merge(*rule, now)
	if err := s.store.UpdateRule(ctx, merged); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, merged, models.AuditRuleReinforced, map[string]any{
		"old_confidence": rule.Confidence,
		"new_confidence": merged.Confidence,
	}, now)
	return &merged, nil
}

// MarkApplied bumps usage counters for the rules injected into a chat turn.
func (s *RuleService) MarkApplied(ctx context.Context, userID string, ruleIDs []string) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	if err := s.store.MarkApplied(ctx, ruleIDs, now); err != nil {
		return err
	}
	for _, id := range ruleIDs {
		s.appendAudit(ctx, models.AuditEvent{
			UserID:    userID,
			RuleID:    id,
			Type:      models.AuditRuleApplied,
			CreatedAt: now,
		})
	}
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
	return nil
}

// AuditTrail returns a user's audit events, newest first.
func (s *RuleService) AuditTrail(ctx context.Context, userID, ruleID string, limit int) ([]models.AuditEvent, error) {
	return s.store.ListAuditEvents(ctx, userID, ruleID, limit)
}

func (s *RuleService) afterWrite(ctx context.Context, rule models.Rule, evType models.AuditEventType, data map[string]any, now time.Time) {
	s.appendAudit(ctx, models.AuditEvent{
		UserID:    rule.UserID,
		RuleID:    rule.ID,
		Type:      evType,
		Data:      data,
		CreatedAt: now,
	})
	if s.cache != nil {
		s.cache.Invalidate(rule.UserID)
	}
}

func (s *RuleService) appendAudit(ctx context.Context, ev models.AuditEvent) {
	if err := s.store.AppendAudit(ctx, ev); err != nil {
		s.logger.Warn("failed to record audit event", "rule", ev.RuleID, "type", ev.Type, "err", err)
	}
}

func (s *RuleService) indexAdd(ctx context.Context, rule models.Rule) {
	if s.index == nil || !rule.HasEmbedding() {
		return
	}
	if err := s.index.Add(ctx, rule.ID, rule.Embedding); err != nil {
		s.logger.Warn("failed to index rule embedding", "rule", rule.ID, "err", err)
	}
}

func (s *RuleService) indexRemove(ctx context.Context, id string) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to remove rule from index", "rule", id, "err", err)
	}
}
