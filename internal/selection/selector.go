// Package selection ranks a user's rules by relevance to the current
// context and trims the ranked list to a token budget for prompt injection.
package selection

import (
	"sort"
	"time"

	"github.com/nvandessel/ruleloop/internal/models"
	"github.com/nvandessel/ruleloop/internal/scoring"
	"github.com/nvandessel/ruleloop/internal/tokens"
	"github.com/nvandessel/ruleloop/internal/vecmath"
)

// Config holds the selection budgets and thresholds.
type Config struct {
	// ConfidenceThreshold is the minimum confidence for a rule to be
	// eligible for selection.
	ConfidenceThreshold float64

	// MaxRules caps how many rules Rank returns.
	MaxRules int

	// MaxTokens is the approximate token budget for SelectForPrompt.
	MaxTokens int
}

// DefaultConfig returns the default selection configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.3,
		MaxRules:            10,
		MaxTokens:           500,
	}
}

// ScoredRule pairs a rule with its relevance score and the component
// signals that produced it.
type ScoredRule struct {
	Rule  models.Rule
	Score float64

	// Component scores for debugging/transparency.
	Relevance    float64
	RecencyBoost float64
}

// Rank scores every eligible rule and returns them ordered by score
// descending, truncated to cfg.MaxRules.
//
//	score = confidence * relevance * recency_boost
//
// Relevance is the cosine similarity between contextEmbedding and the
// rule's embedding; when either is absent it is neutral (1.0), so a rule
// without an embedding is only ever ranked down by confidence, never by
// the missing vector. Only active rules at or above the confidence
// threshold participate. The sort is stable: ties preserve input order.
func Rank(rules []models.Rule, contextEmbedding []float32, cfg Config, now time.Time) []ScoredRule {
	scored := make([]ScoredRule, 0, len(rules))

	for _, rule := range rules {
		if rule.Status != models.StatusActive {
			continue
		}
		if rule.Confidence < cfg.ConfidenceThreshold {
			continue
		}

		relevance := 1.0
		if len(contextEmbedding) > 0 && rule.HasEmbedding() {
			relevance = vecmath.CosineSimilarity(contextEmbedding, rule.Embedding)
		}

		boost := scoring.RecencyBoost(rule.LastAppliedAt, now)

		scored = append(scored, ScoredRule{
			Rule:         rule,
			Score:        rule.Confidence * relevance * boost,
			Relevance:    relevance,
			RecencyBoost: boost,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if cfg.MaxRules > 0 && len(scored) > cfg.MaxRules {
		scored = scored[:cfg.MaxRules]
	}
	return scored
}

// GroupByCategory buckets rules by category in presentation precedence
// order. Categories outside the known precedence are appended in first-seen
// order. Empty categories are omitted.
func GroupByCategory(rules []models.Rule) ([]models.RuleCategory, map[models.RuleCategory][]models.Rule) {
	groups := make(map[models.RuleCategory][]models.Rule)
	for _, r := range rules {
		groups[r.Category] = append(groups[r.Category], r)
	}

	var order []models.RuleCategory
	for _, cat := range models.CategoryPrecedence {
		if _, ok := groups[cat]; ok {
			order = append(order, cat)
		}
	}
	seen := make(map[models.RuleCategory]bool, len(order))
	for _, cat := range order {
		seen[cat] = true
	}
	for _, r := range rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			order = append(order, r.Category)
		}
	}
	return order, groups
}

// SelectForPrompt ranks rules and greedily accepts them in rank order while
// the running token estimate stays at or under cfg.MaxTokens. It stops at
// the first rule that would exceed the budget rather than skipping ahead to
// smaller rules: relevance order wins over maximizing count.
func SelectForPrompt(rules []models.Rule, contextEmbedding []float32, cfg Config, now time.Time) []models.Rule {
	ranked := Rank(rules, contextEmbedding, cfg, now)

	var selected []models.Rule
	total := 0
	for _, sr := range ranked {
		cost := tokens.Estimate(sr.Rule.Content)
		if total+cost > cfg.MaxTokens {
			break
		}
		selected = append(selected, sr.Rule)
		total += cost
	}
	return selected
}
