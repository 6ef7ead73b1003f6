package research

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"claudebuddy-be/pkg/llm"
)

// Verdict is the outcome of a sufficiency decision.
type Verdict string

const (
	VerdictContinue Verdict = "continue"
	VerdictProceed  Verdict = "proceed"
)

// Rule names which layer of the policy produced a verdict.
type Rule string

const (
	RuleHardCap           Rule = "hard_cap"
	RuleColdStart         Rule = "cold_start"
	RuleMinimumRounds     Rule = "minimum_rounds"
	RuleLLMJudgment       Rule = "llm_judgment"
	RuleLLMAmbiguous      Rule = "llm_ambiguous"
	RuleHeuristicFallback Rule = "heuristic_fallback"
)

const (
	minExplorationRounds  = 2
	ambiguousProceedRound = 3
	fallbackProceedRound  = 3
	fallbackMinFindings   = 5
	judgmentDigestLimit   = 10
)

const judgmentPromptTemplate = `You are evaluating whether we have gathered SUFFICIENT information to write a comprehensive research summary.

## Original Research Query
%s

## Research Progress
- Searches completed: %d / %d
- Sources found: %d

## Current Findings Summary
%s

## Evaluation Criteria
Answer these questions:
1. Are the MAIN aspects of the query covered? (main concepts, not edge cases)
2. Do we have CONCRETE facts, examples, or data? (not just vague overviews)
3. Are we seeing DIMINISHING RETURNS? (new searches returning similar info)
4. Are there OBVIOUS GAPS that one more targeted search would fill?

## Decision
Based on your evaluation, should we:
- RESEARCH: Continue gathering more information (there are clear gaps)
- WRITE: We have sufficient information to write a good summary

Respond with ONLY one word: "RESEARCH" or "WRITE"
`

// DecisionInput is the read-only view of a session the evaluator needs.
type DecisionInput struct {
	Query      string
	RoundCount int
	RoundLimit int
	Findings   []Finding
}

type Decision struct {
	Verdict Verdict
	Rule    Rule
}

// Judgment is the parsed answer of the language model.
type Judgment int

const (
	JudgmentAmbiguous Judgment = iota
	JudgmentWrite
	JudgmentResearch
)

// ParseJudgment reads the verdict case-insensitively. Whole words decide
// first: WRITE wins unless a negation precedes it ("do not write"), then
// RESEARCH. Only when neither appears as a word does substring matching apply.
func ParseJudgment(answer string) Judgment {
	upper := strings.ToUpper(answer)
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var write, research bool
	for i, w := range words {
		switch w {
		case "WRITE":
			if !negated(words, i) {
				write = true
			}
		case "RESEARCH":
			research = true
		}
	}
	switch {
	case write:
		return JudgmentWrite
	case research:
		return JudgmentResearch
	case strings.Contains(upper, "WRITE"):
		return JudgmentWrite
	case strings.Contains(upper, "RESEARCH"):
		return JudgmentResearch
	default:
		return JudgmentAmbiguous
	}
}

var negations = map[string]bool{"NOT": true, "DON'T": true, "NO": true, "NEVER": true, "CANNOT": true, "CAN'T": true}

// negated reports whether one of the two words before words[i] negates it.
func negated(words []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if negations[words[j]] {
			return true
		}
	}
	return false
}

// Evaluator applies the layered sufficiency policy. Rules are evaluated in a
// fixed order and the first match wins.
type Evaluator struct {
	llm     llm.LLMProvider
	timeout time.Duration
}

func NewEvaluator(provider llm.LLMProvider, timeout time.Duration) *Evaluator {
	return &Evaluator{llm: provider, timeout: timeout}
}

func (e *Evaluator) Decide(ctx context.Context, in DecisionInput) Decision {
	if in.RoundCount >= in.RoundLimit {
		return Decision{Verdict: VerdictProceed, Rule: RuleHardCap}
	}
	if len(in.Findings) == 0 {
		return Decision{Verdict: VerdictContinue, Rule: RuleColdStart}
	}
	if in.RoundCount < minExplorationRounds {
		return Decision{Verdict: VerdictContinue, Rule: RuleMinimumRounds}
	}

	answer, err := e.ask(ctx, in)
	if err != nil {
		if in.RoundCount >= fallbackProceedRound && len(in.Findings) >= fallbackMinFindings {
			return Decision{Verdict: VerdictProceed, Rule: RuleHeuristicFallback}
		}
		return Decision{Verdict: VerdictContinue, Rule: RuleHeuristicFallback}
	}

	switch ParseJudgment(answer) {
	case JudgmentWrite:
		return Decision{Verdict: VerdictProceed, Rule: RuleLLMJudgment}
	case JudgmentResearch:
		return Decision{Verdict: VerdictContinue, Rule: RuleLLMJudgment}
	}
	if in.RoundCount >= ambiguousProceedRound {
		return Decision{Verdict: VerdictProceed, Rule: RuleLLMAmbiguous}
	}
	return Decision{Verdict: VerdictContinue, Rule: RuleLLMAmbiguous}
}

func (e *Evaluator) ask(ctx context.Context, in DecisionInput) (string, error) {
	if e.llm == nil {
		return "", fmt.Errorf("%w: no text generation provider", ErrConfiguration)
	}
	prompt := fmt.Sprintf(judgmentPromptTemplate,
		in.Query, in.RoundCount, in.RoundLimit, len(in.Findings),
		digest(in.Findings, judgmentDigestLimit, true))

	return callWithTimeout(ctx, e.timeout, func(ctx context.Context) (string, error) {
		return e.llm.Generate(ctx, prompt, llm.WithTemperature(0))
	})
}
