package prompts

import (
	"strings"
	"testing"

	"github.com/nvandessel/ruleloop/internal/models"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello" {
		t.Errorf("Truncate long = %q", got)
	}
}

func TestCorrectionDetectionPromptTruncatesResponse(t *testing.T) {
	long := strings.Repeat("x", 5000)
	prompt := CorrectionDetectionPrompt("don't do that", long)
	if strings.Contains(prompt, strings.Repeat("x", MaxResponseContext+1)) {
		t.Error("previous response was not truncated")
	}
	if !strings.Contains(prompt, "don't do that") {
		t.Error("user message missing from prompt")
	}
}

func TestBuildRulesSectionPrecedence(t *testing.T) {
	rules := []models.Rule{
		{Content: "Keep a friendly tone", Category: models.CategoryTone},
		{Content: "Never reveal secrets", Category: models.CategorySafety},
		{Content: "Use bullet points", Category: models.CategoryFormatting},
		{Content: "Show your working", Category: models.CategoryLogic},
	}

	section := BuildRulesSection(rules)

	order := []string{"[SAFETY]", "[LOGIC]", "[FORMATTING]", "[TONE]"}
	lastIdx := -1
	for _, header := range order {
		idx := strings.Index(section, header)
		if idx < 0 {
			t.Fatalf("missing %s in section:\n%s", header, section)
		}
		if idx < lastIdx {
			t.Fatalf("%s out of precedence order in section:\n%s", header, section)
		}
		lastIdx = idx
	}
}

func TestBuildRulesSectionUnknownCategoryAppended(t *testing.T) {
	rules := []models.Rule{
		{Content: "Custom thing", Category: models.RuleCategory("workflow")},
		{Content: "Never reveal secrets", Category: models.CategorySafety},
	}

	section := BuildRulesSection(rules)
	safetyIdx := strings.Index(section, "[SAFETY]")
	customIdx := strings.Index(section, "[WORKFLOW]")
	if safetyIdx < 0 || customIdx < 0 {
		t.Fatalf("missing section headers:\n%s", section)
	}
	if customIdx < safetyIdx {
		t.Error("unknown category should come after precedence-listed categories")
	}
}

func TestBuildRulesSectionEmpty(t *testing.T) {
	if got := BuildRulesSection(nil); got != "No specific preferences to apply." {
		t.Errorf("empty rules section = %q", got)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	rules := []models.Rule{
		{Content: "Use bullet points", Category: models.CategoryFormatting},
	}
	prompt := BuildSystemPrompt(rules)
	if !strings.Contains(prompt, "Use bullet points") {
		t.Error("rule content missing from system prompt")
	}
	if !strings.Contains(prompt, "Follow these rules strictly") {
		t.Error("system template missing from prompt")
	}
}
