// Package prompts holds the prompt templates for correction detection,
// rule extraction, and system prompt construction, plus the builders that
// fill them in.
package prompts

import (
	"fmt"
	"strings"
)

// MaxResponseContext is the maximum number of characters of the prior
// assistant response sent to the extraction service. Token/cost control,
// not a correctness requirement.
const MaxResponseContext = 1000

const systemPromptTemplate = `You are a helpful AI assistant. Follow these rules strictly:

%s

Instructions:
- Apply all rules above without mentioning them unless explicitly asked
- Maintain a natural, helpful tone
- If a rule conflicts with the user's explicit request, prioritize the request
- Be consistent in applying preferences across all responses`

const correctionDetectionTemplate = `Analyze if this user message is a correction or feedback about the previous AI response.

PREVIOUS AI RESPONSE: %s
USER MESSAGE: %s

Determine if the user is:
1. Correcting something the AI did wrong
2. Expressing a preference for future responses
3. Providing feedback on style, tone, or formatting
4. Just continuing the conversation normally

OUTPUT (JSON):
{
    "is_correction": true/false,
    "correction_type": "style" | "tone" | "formatting" | "logic" | "safety" | "none",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation"
}`

const ruleExtractionTemplate = `Analyze this user correction and extract a reusable rule.

CONTEXT:
Previous AI response: %s
User correction: %s

TASK:
1. Identify the specific preference being expressed
2. Generalize it into a reusable rule
3. Categorize it: style | tone | formatting | logic | safety

OUTPUT (JSON):
{
    "rule": "The generalized, reusable rule in imperative form (e.g., 'Use bullet points for lists')",
    "category": "category_name",
    "reasoning": "Brief explanation of why this rule was extracted",
    "is_valid": true/false
}

GUIDELINES:
- Be specific but generalizable
- Focus on actionable instructions
- Write rules in imperative form ("Do X", "Avoid Y")
- Avoid over-generalizing from a single instance
- If the correction is too vague or context-specific, set is_valid to false`

// ExtractionSystemPrompt is the system prompt for structured extraction calls.
const ExtractionSystemPrompt = "You are a helpful assistant that responds in valid JSON."

// Truncate limits s to max characters.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// CorrectionDetectionPrompt builds the prompt asking whether userMessage
// corrects previousResponse. The prior response is truncated for token
// efficiency.
func CorrectionDetectionPrompt(userMessage, previousResponse string) string {
	return fmt.Sprintf(correctionDetectionTemplate,
		Truncate(previousResponse, MaxResponseContext), userMessage)
}

// RuleExtractionPrompt builds the prompt asking the model to generalize a
// correction into an imperative rule plus a category.
func RuleExtractionPrompt(correction, previousResponse string) string {
	return fmt.Sprintf(ruleExtractionTemplate,
		Truncate(previousResponse, MaxResponseContext), correction)
}

// SystemPrompt wraps a formatted rules section in the assistant's system
// prompt template.
func SystemPrompt(rulesSection string) string {
	if strings.TrimSpace(rulesSection) == "" {
		rulesSection = "No specific preferences to apply."
	}
	return fmt.Sprintf(systemPromptTemplate, rulesSection)
}
