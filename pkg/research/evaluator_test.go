package research

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func nFindings(n int) []Finding {
	out := make([]Finding, n)
	for i := range out {
		out[i] = finding(fmt.Sprintf("f%d", i))
	}
	return out
}

func TestParseJudgment(t *testing.T) {
	tests := []struct {
		answer string
		want   Judgment
	}{
		{"WRITE", JudgmentWrite},
		{"  write.  ", JudgmentWrite},
		{"Research", JudgmentResearch},
		{"I would RESEARCH more, then WRITE", JudgmentWrite},
		{"RESEARCH; do not write yet", JudgmentResearch},
		{"Research more before any rewrite", JudgmentResearch},
		{"Don't write, research", JudgmentResearch},
		{"REWRITE", JudgmentWrite},
		{"WRITE: enough sources", JudgmentWrite},
		{"maybe", JudgmentAmbiguous},
		{"", JudgmentAmbiguous},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseJudgment(tt.answer), tt.answer)
	}
}

func TestEvaluator_RuleOrder(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		err      error
		rounds   int
		limit    int
		findings int
		want     Decision
	}{
		{name: "hard cap beats research", answer: "RESEARCH", rounds: 5, limit: 5, findings: 8,
			want: Decision{VerdictProceed, RuleHardCap}},
		{name: "hard cap with no findings", answer: "RESEARCH", rounds: 3, limit: 3, findings: 0,
			want: Decision{VerdictProceed, RuleHardCap}},
		{name: "cold start late", answer: "WRITE", rounds: 4, limit: 10, findings: 0,
			want: Decision{VerdictContinue, RuleColdStart}},
		{name: "minimum rounds", answer: "WRITE", rounds: 1, limit: 10, findings: 9,
			want: Decision{VerdictContinue, RuleMinimumRounds}},
		{name: "model says write", answer: "WRITE", rounds: 2, limit: 10, findings: 3,
			want: Decision{VerdictProceed, RuleLLMJudgment}},
		{name: "model says research", answer: "research", rounds: 4, limit: 10, findings: 9,
			want: Decision{VerdictContinue, RuleLLMJudgment}},
		{name: "ambiguous early", answer: "hmm", rounds: 2, limit: 10, findings: 9,
			want: Decision{VerdictContinue, RuleLLMAmbiguous}},
		{name: "ambiguous late", answer: "hmm", rounds: 3, limit: 10, findings: 1,
			want: Decision{VerdictProceed, RuleLLMAmbiguous}},
		{name: "failure with enough", err: errProviderDown, rounds: 3, limit: 10, findings: 5,
			want: Decision{VerdictProceed, RuleHeuristicFallback}},
		{name: "failure with few findings", err: errProviderDown, rounds: 6, limit: 10, findings: 4,
			want: Decision{VerdictContinue, RuleHeuristicFallback}},
		{name: "failure too early", err: errProviderDown, rounds: 2, limit: 10, findings: 9,
			want: Decision{VerdictContinue, RuleHeuristicFallback}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scriptedLLM{judge: func(string) (string, error) { return tt.answer, tt.err }}
			e := NewEvaluator(provider, time.Second)

			got := e.Decide(context.Background(), DecisionInput{
				Query:      "evaluate this query",
				RoundCount: tt.rounds,
				RoundLimit: tt.limit,
				Findings:   nFindings(tt.findings),
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_SkipsModelBeforeJudgment(t *testing.T) {
	provider := answering("WRITE")
	e := NewEvaluator(provider, time.Second)

	e.Decide(context.Background(), DecisionInput{RoundCount: 2, RoundLimit: 2, Findings: nFindings(3)})
	e.Decide(context.Background(), DecisionInput{RoundCount: 1, RoundLimit: 5})
	e.Decide(context.Background(), DecisionInput{RoundCount: 1, RoundLimit: 5, Findings: nFindings(3)})

	assert.Empty(t, provider.prompts)
}

func TestEvaluator_PromptDigestsTenFindings(t *testing.T) {
	provider := answering("WRITE")
	e := NewEvaluator(provider, time.Second)

	e.Decide(context.Background(), DecisionInput{
		Query:      "how many sources",
		RoundCount: 2,
		RoundLimit: 6,
		Findings:   nFindings(12),
	})

	assert.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "Searches completed: 2 / 6")
	assert.Contains(t, prompt, "Sources found: 12")
	assert.Contains(t, prompt, "10. f9: ")
	assert.NotContains(t, prompt, "11. ")
}

func TestEvaluator_NilProviderUsesHeuristic(t *testing.T) {
	e := NewEvaluator(nil, time.Second)
	got := e.Decide(context.Background(), DecisionInput{RoundCount: 3, RoundLimit: 5, Findings: nFindings(5)})
	assert.Equal(t, Decision{VerdictProceed, RuleHeuristicFallback}, got)
}
