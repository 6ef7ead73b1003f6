package research

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	untitled           = "Untitled"
	digestExcerptChars = 200
)

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func titleOf(f Finding) string {
	if strings.TrimSpace(f.Title) == "" {
		return untitled
	}
	return f.Title
}

// digest renders at most limit findings as one line each. Numbered lists are
// used for the sufficiency prompt, bullets for query refinement.
func digest(findings []Finding, limit int, numbered bool) string {
	if len(findings) == 0 {
		return "No findings yet."
	}
	if len(findings) > limit {
		findings = findings[:limit]
	}

	lines := make([]string, 0, len(findings))
	for i, f := range findings {
		excerpt := truncate(f.Excerpt, digestExcerptChars)
		if numbered {
			lines = append(lines, fmt.Sprintf("%d. %s: %s...", i+1, titleOf(f), excerpt))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s...", titleOf(f), excerpt))
		}
	}
	return strings.Join(lines, "\n")
}
