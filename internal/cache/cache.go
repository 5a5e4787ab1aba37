// Package cache provides a TTL cache for per-user rule sets. Rule loads on
// the chat path hit storage once per user per TTL; every rule mutation
// invalidates that user's entry so the next load sees fresh data.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nvandessel/ruleloop/internal/models"
)

// DefaultTTL is how long a cached rule set stays valid without invalidation.
const DefaultTTL = time.Hour

// RuleCache caches active rule sets keyed by user ID.
// Safe for concurrent use.
type RuleCache struct {
	c *gocache.Cache
}

// NewRuleCache creates a RuleCache with the given TTL. A non-positive ttl
// falls back to DefaultTTL.
func NewRuleCache(ttl time.Duration) *RuleCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RuleCache{
		c: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the cached rule set for userID, or false if absent or expired.
func (rc *RuleCache) Get(userID string) ([]models.Rule, bool) {
	v, ok := rc.c.Get(userID)
	if !ok {
		return nil, false
	}
	rules, ok := v.([]models.Rule)
	return rules, ok
}

// Set stores the rule set for userID at the cache's default TTL.
func (rc *RuleCache) Set(userID string, rules []models.Rule) {
	rc.c.SetDefault(userID, rules)
}

// Invalidate drops the cached rule set for userID. No-op if absent.
func (rc *RuleCache) Invalidate(userID string) {
	rc.c.Delete(userID)
}

// InvalidateAll drops every cached entry. Used after a decay sweep, which
// can touch rules across many users at once.
func (rc *RuleCache) InvalidateAll() {
	rc.c.Flush()
}
