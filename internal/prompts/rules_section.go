package prompts

import (
	"fmt"
	"strings"

	"github.com/nvandessel/ruleloop/internal/models"
	"github.com/nvandessel/ruleloop/internal/selection"
)

// BuildRulesSection formats selected rules for injection into the system
// prompt. Rules are partitioned by category in the fixed precedence order
// (safety first, tone last) so safety and logic rules always appear ahead
// of stylistic ones regardless of relevance score. Categories outside the
// precedence list are appended after, in first-seen order.
func BuildRulesSection(rules []models.Rule) string {
	if len(rules) == 0 {
		return "No specific preferences to apply."
	}

	order, groups := selection.GroupByCategory(rules)

	sections := make([]string, 0, len(order))
	for _, category := range order {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s]", strings.ToUpper(string(category)))
		for _, rule := range groups[category] {
			b.WriteString("\n- ")
			b.WriteString(rule.Content)
		}
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n\n")
}

// BuildSystemPrompt builds the complete system prompt for a rule set.
func BuildSystemPrompt(rules []models.Rule) string {
	return SystemPrompt(BuildRulesSection(rules))
}
