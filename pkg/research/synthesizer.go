package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"claudebuddy-be/pkg/llm"
)

// ErrEmptySynthesis is returned when the model produced no text.
var ErrEmptySynthesis = errors.New("synthesis produced an empty summary")

const (
	synthesisBodyChars = 2000
	synthesisMaxTokens = 4096
)

const synthesisPromptTemplate = `You are a research synthesizer. Based on the following research findings, write a comprehensive, well-structured summary.

## Original Research Query
%s

## Research Findings (%d sources found)
%s

## Your Task
Write a comprehensive research summary in Markdown format with the following structure:

1. **Executive Summary** (2-3 sentences capturing the key takeaway)

2. **Key Findings** (bullet points of the most important facts/insights)

3. **Detailed Analysis** (organized by subtopics, with proper headings)

4. **Practical Implications** (how this information can be applied)

5. **Sources** (numbered list of all sources with URLs)

Guidelines:
- Be factual and cite sources where appropriate
- Use clear, professional language
- Organize information logically
- Highlight areas of consensus and any conflicting information
- Include specific examples, numbers, or quotes where available
- Note any gaps in the research or areas needing further investigation

Write the summary now:`

type Synthesizer struct {
	llm     llm.LLMProvider
	timeout time.Duration
}

func NewSynthesizer(provider llm.LLMProvider, timeout time.Duration) *Synthesizer {
	return &Synthesizer{llm: provider, timeout: timeout}
}

// Write turns the findings into a five-section markdown report. With no
// findings it returns a fixed report without calling the model. Generation
// errors are returned as is; there is no retry.
func (s *Synthesizer) Write(ctx context.Context, query string, findings []Finding) (string, error) {
	if len(findings) == 0 {
		return NoFindingsSummary(query), nil
	}
	if s.llm == nil {
		return "", fmt.Errorf("%w: no text generation provider", ErrConfiguration)
	}

	prompt := fmt.Sprintf(synthesisPromptTemplate, query, len(findings), formatSources(findings))
	out, err := callWithTimeout(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, prompt, llm.WithMaxTokens(synthesisMaxTokens))
	})
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptySynthesis
	}
	return out, nil
}

// NoFindingsSummary is the report written when every round came back empty.
func NoFindingsSummary(query string) string {
	var b strings.Builder
	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "No information was found for the query %q. Every search round returned no usable sources, so no synthesis was possible.\n\n", query)
	b.WriteString("## Key Findings\n\n- No sources were retrieved.\n\n")
	b.WriteString("## Detailed Analysis\n\nNothing to analyse.\n\n")
	b.WriteString("## Practical Implications\n\nTry rephrasing the query, widening its scope, or checking that the search provider is reachable.\n\n")
	b.WriteString("## Sources\n\nNone.\n")
	return b.String()
}

func formatSources(findings []Finding) string {
	blocks := make([]string, 0, len(findings))
	for i, f := range findings {
		body := f.Excerpt
		if utf8.RuneCountInString(f.FullText) > utf8.RuneCountInString(body) {
			body = f.FullText
		}
		if utf8.RuneCountInString(body) > synthesisBodyChars {
			body = truncate(body, synthesisBodyChars) + "..."
		}
		blocks = append(blocks, fmt.Sprintf("\n### Source %d: %s\nURL: %s\n\n%s\n", i+1, titleOf(f), f.URL, body))
	}
	return strings.Join(blocks, "\n---\n")
}
