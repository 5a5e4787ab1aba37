// Package sweep implements the periodic decay pass: every active rule's
// confidence is recomputed from its stored counters, rules that fall below
// the archive threshold are archived, and the whole batch commits in one
// transaction. Recomputing from counters (rather than subtracting from the
// stored value) makes the sweep idempotent: running it twice at the same
// instant produces the same state.
package sweep

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/ruleloop/internal/cache"
	"github.com/nvandessel/ruleloop/internal/models"
	"github.com/nvandessel/ruleloop/internal/scoring"
	"github.com/nvandessel/ruleloop/internal/store"
)

// Epsilon is the minimum confidence change worth persisting. Non-archiving
// drifts at or below it are skipped; drops above it are logged as decay.
const Epsilon = 0.01

// Config holds sweep parameters.
type Config struct {
	// DecayRate is the per-week confidence penalty for unused rules.
	DecayRate float64

	// ArchiveThreshold is the confidence below which a rule is archived.
	ArchiveThreshold float64
}

// DefaultConfig returns the default sweep configuration.
func DefaultConfig() Config {
	return Config{
		DecayRate:        scoring.DefaultDecayRate,
		ArchiveThreshold: 0.2,
	}
}

// Transition is one rule's computed state change.
type Transition struct {
	Rule          models.Rule
	OldConfidence float64
	NewConfidence float64
	NewStatus     models.RuleStatus

	// Decayed reports whether the confidence dropped by at least Epsilon.
	Decayed bool

	// Archived reports whether the rule crossed the archive threshold.
	Archived bool
}

// ComputeTransitions recomputes every rule's confidence from its counters
// and returns the rules whose state changes. Confidence drift at or below
// Epsilon is ignored unless the rule archives. Pure: no I/O, no clock.
func ComputeTransitions(rules []models.Rule, now time.Time, cfg Config) []Transition {
	var out []Transition
	for _, rule := range rules {
		newConf := scoring.Confidence(models.BaseConfidence, rule.TimesReinforced, rule.LastAppliedAt, cfg.DecayRate, now)

		newStatus := rule.Status
		archived := false
		if scoring.ShouldArchive(newConf, cfg.ArchiveThreshold) {
			newStatus = models.StatusArchived
			archived = true
		}

		delta := rule.Confidence - newConf
		decayed := delta > Epsilon
		if !archived && math.Abs(delta) <= Epsilon {
			continue
		}

		out = append(out, Transition{
			Rule:          rule,
			OldConfidence: rule.Confidence,
			NewConfidence: newConf,
			NewStatus:     newStatus,
			Decayed:       decayed,
			Archived:      archived,
		})
	}
	return out
}

// Result summarizes one sweep run.
type Result struct {
	// Processed is the number of active rules examined.
	Processed int

	// Updated is the number of rules whose state changed.
	Updated int

	// Archived is the number of rules archived this run.
	Archived int

	// AffectedUsers lists the users whose rule sets changed.
	AffectedUsers []string
}

// Sweeper runs decay sweeps against the store.
type Sweeper struct {
	rules  store.RuleStore
	audit  store.AuditStore
	cache  *cache.RuleCache
	config Config
	logger *log.Logger
}

// NewSweeper creates a Sweeper. audit and ruleCache may be nil, in which
// case events are not recorded and no cache is invalidated.
func NewSweeper(rules store.RuleStore, audit store.AuditStore, ruleCache *cache.RuleCache, cfg Config, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		rules:  rules,
		audit:  audit,
		cache:  ruleCache,
		config: cfg,
		logger: logger,
	}
}

// Run executes one sweep: load active rules, recompute, commit the batch
// atomically, record audit events, and invalidate affected users' cached
// rule sets.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	now := time.Now().UTC()

	active, err := s.rules.ListActiveRules(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("sweep: list active rules: %w", err)
	}

	transitions := s.computeParallel(ctx, active, now)
	result := Result{Processed: len(active)}

	if len(transitions) == 0 {
		s.logger.Debug("sweep found nothing to change", "processed", result.Processed)
		return result, nil
	}

	batch := make([]store.RuleTransition, len(transitions))
	for i, tr := range transitions {
		batch[i] = store.RuleTransition{
			RuleID:     tr.Rule.ID,
			UserID:     tr.Rule.UserID,
			Confidence: tr.NewConfidence,
			Status:     tr.NewStatus,
		}
	}
	if err := s.rules.ApplyTransitions(ctx, batch, now); err != nil {
		return Result{}, fmt.Errorf("sweep: apply transitions: %w", err)
	}

	users := make(map[string]bool)
	for _, tr := range transitions {
		result.Updated++
		if tr.Archived {
			result.Archived++
		}
		users[tr.Rule.UserID] = true
		s.recordEvents(ctx, tr, now)
	}
	for u := range users {
		result.AffectedUsers = append(result.AffectedUsers, u)
		if s.cache != nil {
			s.cache.Invalidate(u)
		}
	}

	s.logger.Info("sweep complete",
		"processed", result.Processed,
		"updated", result.Updated,
		"archived", result.Archived,
		"users", len(result.AffectedUsers))
	return result, nil
}

// computeParallel chunks the active rules across workers and computes
// transitions concurrently. The commit stays a single transaction.
func (s *Sweeper) computeParallel(ctx context.Context, rules []models.Rule, now time.Time) []Transition {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(rules) {
		workers = len(rules)
	}
	if workers <= 1 {
		return ComputeTransitions(rules, now, s.config)
	}

	var (
		mu  sync.Mutex
		out []Transition
	)
	g, _ := errgroup.WithContext(ctx)
	chunk := (len(rules) + workers - 1) / workers
	for start := 0; start < len(rules); start += chunk {
		end := start + chunk
		if end > len(rules) {
			end = len(rules)
		}
		part := rules[start:end]
		g.Go(func() error {
			trs := ComputeTransitions(part, now, s.config)
			mu.Lock()
			out = append(out, trs...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Sweeper) recordEvents(ctx context.Context, tr Transition, now time.Time) {
	if s.audit == nil {
		return
	}
	if tr.Decayed {
		s.appendEvent(ctx, tr, models.AuditRuleDecayed, now)
	}
	if tr.Archived {
		s.appendEvent(ctx, tr, models.AuditRuleArchived, now)
	}
}

func (s *Sweeper) appendEvent(ctx context.Context, tr Transition, evType models.AuditEventType, now time.Time) {
	err := s.audit.AppendAudit(ctx, models.AuditEvent{
		UserID: tr.Rule.UserID,
		RuleID: tr.Rule.ID,
		Type:   evType,
		Data: map[string]any{
			"old_confidence": tr.OldConfidence,
			"new_confidence": tr.NewConfidence,
		},
		CreatedAt: now,
	})
	if err != nil {
		s.logger.Warn("failed to record sweep audit event", "rule", tr.Rule.ID, "err", err)
	}
}
