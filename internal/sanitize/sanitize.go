// Package sanitize cleans correction and rule text before it is stored and
// later injected into system prompts. It strips control characters, markup,
// and code fences to prevent stored prompt injection through learned rules,
// while preserving semantic content.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxContentLength is the maximum allowed length for rule content and
// stored correction text.
const MaxContentLength = 2000

var (
	// reXMLTag matches XML/HTML tags, including attributed, self-closing,
	// and unclosed-at-end-of-string variants.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?\s*>|<\?[^?]*\?>|</\s+[a-zA-Z][^>]*>|<[/?!]?[a-zA-Z][^>]*$`)

	// reHTMLComment matches HTML comments like <!-- anything -->.
	reHTMLComment = regexp.MustCompile(`<!--[\s\S]*?-->`)

	// reMarkdownHeading matches markdown headings at the start of a line.
	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	// reHorizontalRule matches markdown horizontal rules at the start of a line.
	reHorizontalRule = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)

	// reTripleBacktick matches triple (or more) backtick code fences.
	reTripleBacktick = regexp.MustCompile("```+")

	// reExcessiveNewlines matches 3 or more consecutive newlines.
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
)

// Content sanitizes rule or correction text for safe storage and prompt
// injection:
//
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Strip HTML comments and XML/HTML tags
//  3. Replace markdown headings with list markers
//  4. Remove markdown horizontal rules
//  5. Collapse code fences to a single backtick
//  6. Collapse excessive newlines
//  7. Trim and truncate to MaxContentLength
func Content(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reHTMLComment.ReplaceAllString(s, "")
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reHorizontalRule.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	// Rune-safe truncation so multi-byte characters are never split.
	if utf8.RuneCountInString(s) > MaxContentLength {
		runes := []rune(s)
		s = string(runes[:MaxContentLength]) + "..."
	}

	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL
// (0x7F), preserving newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 || r == 0x7F) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
