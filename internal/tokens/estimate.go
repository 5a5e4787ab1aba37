// Package tokens provides token estimation utilities for prompt budgeting.
package tokens

// Estimate provides a rough token count estimate for text.
// Uses the common heuristic of ~4 characters per token for English text.
func Estimate(text string) int {
	return len(text) / 4
}
