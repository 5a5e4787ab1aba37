// Package dedup provides semantic duplicate detection and reinforcement
// merging for learned rules, based on embedding cosine similarity.
package dedup

import (
	"time"

	"github.com/nvandessel/ruleloop/internal/models"
	"github.com/nvandessel/ruleloop/internal/vecmath"
)

// DefaultSimilarityThreshold is the minimum cosine similarity for two rules
// to count as duplicates. High enough to avoid false positives on rules
// that merely share vocabulary.
const DefaultSimilarityThreshold = 0.85

// FindSimilar scans existing rules in input order and returns the first rule
// whose embedding reaches threshold cosine similarity with candidate.
// Rules without an embedding are skipped, never treated as a match.
// Returns nil when no rule qualifies.
//
// First-match (not best-match) is deliberate: given a stable iteration order
// the outcome is deterministic, and switching to best-match would change
// observable duplicate-resolution results.
func FindSimilar(candidate []float32, existing []models.Rule, threshold float64) *models.Rule {
	if len(candidate) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	for i := range existing {
		rule := &existing[i]
		if !rule.HasEmbedding() {
			continue
		}
		if vecmath.CosineSimilarity(candidate, rule.Embedding) >= threshold {
			return rule
		}
	}

	return nil
}

// Merge reinforces existing with a new correction: bumps the reinforcement
// counter, stamps last_reinforced_at, and raises confidence by one step up
// to the ceiling. Pure value transformation; callers decide when a merge is
// warranted (a confirmed duplicate or an explicit reinforcement action).
func Merge(existing models.Rule, now time.Time) models.Rule {
	merged := existing
	merged.TimesReinforced++
	merged.LastReinforcedAt = &now
	merged.Confidence = existing.Confidence + 0.1
	if merged.Confidence > models.ConfidenceCeiling {
		merged.Confidence = models.ConfidenceCeiling
	}
	merged.UpdatedAt = now
	return merged
}
