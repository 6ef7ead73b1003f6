package research

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"claudebuddy-be/pkg/llm"
)

const (
	queryDigestLimit  = 5
	minQueryChars     = 5
	fallbackQuerySufx = " details examples"
)

const refinePromptTemplate = `Based on the original research query and what we've already found, generate a NEW, DIFFERENT search query to fill gaps in our knowledge.

Original Query: %s

What we've found so far:
%s

Generate a single search query (just the query text, nothing else) that will help us find NEW information we don't already have. Focus on:
1. Different aspects of the topic not yet covered
2. More specific details or examples
3. Recent developments or updates
4. Alternative perspectives or approaches

Search query:`

// FallbackQuery is used whenever a refined query cannot be generated.
func FallbackQuery(original string) string {
	return original + fallbackQuerySufx
}

// QueryPlanner produces the search query for each round.
type QueryPlanner struct {
	llm     llm.LLMProvider
	timeout time.Duration
}

func NewQueryPlanner(provider llm.LLMProvider, timeout time.Duration) *QueryPlanner {
	return &QueryPlanner{llm: provider, timeout: timeout}
}

// Next returns the query for round roundIndex. It never fails: the first round
// probes the original query verbatim and generation problems fall back to
// FallbackQuery.
func (p *QueryPlanner) Next(ctx context.Context, original string, findings []Finding, roundIndex int) string {
	if roundIndex == 0 || len(findings) == 0 {
		return original
	}
	if p.llm == nil {
		return FallbackQuery(original)
	}

	prompt := fmt.Sprintf(refinePromptTemplate, original, digest(findings, queryDigestLimit, false))
	out, err := callWithTimeout(ctx, p.timeout, func(ctx context.Context) (string, error) {
		return p.llm.Generate(ctx, prompt, llm.WithTemperature(0.7))
	})
	if err != nil {
		return FallbackQuery(original)
	}

	q := cleanQuery(out)
	if utf8.RuneCountInString(q) < minQueryChars {
		return FallbackQuery(original)
	}
	return q
}

// cleanQuery strips whitespace, a leading "Search query:" echo and wrapping quotes.
func cleanQuery(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if strings.HasPrefix(strings.ToLower(s), "search query:") {
		s = strings.TrimSpace(s[len("search query:"):])
	}
	return strings.TrimSpace(strings.Trim(s, "\"'`"))
}
