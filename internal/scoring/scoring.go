// Package scoring provides the pure confidence arithmetic for rules:
// reinforcement bonuses, time decay, archive checks, and recency boosts.
// All functions take explicit timestamps so they are testable without a
// real clock.
package scoring

import (
	"time"

	"github.com/nvandessel/ruleloop/internal/models"
)

const (
	// ReinforcementStep is the confidence gained per reinforcement.
	ReinforcementStep = 0.1

	// ReinforcementCap bounds the total reinforcement bonus so repetition
	// alone cannot dominate the score.
	ReinforcementCap = 0.45

	// DecayCap bounds the total decay penalty so staleness alone cannot
	// dominate the score.
	DecayCap = 0.4

	// DefaultDecayRate is the per-week confidence penalty for unused rules.
	DefaultDecayRate = 0.05

	// RecencyWindow is how recently a rule must have been applied to earn
	// the recency boost during ranking.
	RecencyWindow = 24 * time.Hour

	// RecencyBoostFactor is the score multiplier for recently applied rules.
	RecencyBoostFactor = 1.2
)

// WeeksUnused returns the number of whole weeks elapsed since lastApplied.
// Returns 0 when lastApplied is nil or in the future.
func WeeksUnused(lastApplied *time.Time, now time.Time) int {
	if lastApplied == nil {
		return 0
	}
	days := int(now.Sub(*lastApplied).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}

// Confidence computes the current confidence for a rule from its stored
// counters and timestamps:
//
//	base + min(timesReinforced*0.1, 0.45) - min(weeksUnused*decayRate, 0.4)
//
// clamped to [0.1, 0.95]. Reinforcement and staleness are independent
// bounded pressures; a rule that was never applied takes no decay penalty.
func Confidence(base float64, timesReinforced int, lastApplied *time.Time, decayRate float64, now time.Time) float64 {
	bonus := float64(timesReinforced) * ReinforcementStep
	if bonus > ReinforcementCap {
		bonus = ReinforcementCap
	}

	penalty := 0.0
	if lastApplied != nil {
		penalty = float64(WeeksUnused(lastApplied, now)) * decayRate
		if penalty > DecayCap {
			penalty = DecayCap
		}
	}

	return models.ClampConfidence(base + bonus - penalty)
}

// Decay returns the decay amount to subtract from a rule's current
// confidence. Rules used within the last week, or never applied, take no
// decay. The amount is capped so confidence never drops below the 0.1 floor.
func Decay(currentConfidence float64, lastApplied *time.Time, decayRate float64, now time.Time) float64 {
	if lastApplied == nil {
		return 0.0
	}

	days := int(now.Sub(*lastApplied).Hours() / 24)
	if days < 7 {
		return 0.0
	}

	amount := float64(days/7) * decayRate
	if max := currentConfidence - models.ConfidenceFloor; amount > max {
		amount = max
	}
	if amount < 0 {
		return 0.0
	}
	return amount
}

// ShouldArchive reports whether a rule's confidence has fallen below the
// archive threshold.
func ShouldArchive(confidence, archiveThreshold float64) bool {
	return confidence < archiveThreshold
}

// RecencyBoost returns the ranking multiplier for a rule: 1.2 when the rule
// was applied within the last 24 hours, 1.0 otherwise.
func RecencyBoost(lastApplied *time.Time, now time.Time) float64 {
	if lastApplied == nil {
		return 1.0
	}
	if now.Sub(*lastApplied) < RecencyWindow {
		return RecencyBoostFactor
	}
	return 1.0
}
