package research

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryPlanner_FirstRoundVerbatim(t *testing.T) {
	provider := answering("WRITE")
	planner := NewQueryPlanner(provider, time.Second)
	original := "How do Go generics affect compile times?"

	assert.Equal(t, original, planner.Next(context.Background(), original, nil, 0))
	assert.Equal(t, original, planner.Next(context.Background(), original, []Finding{finding("a")}, 0))
	assert.Equal(t, original, planner.Next(context.Background(), original, nil, 3))
	assert.Empty(t, provider.prompts)
}

func TestQueryPlanner_Refines(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
		want   string
	}{
		{name: "plain", answer: "go generics benchmarks 2024", want: "go generics benchmarks 2024"},
		{name: "quoted", answer: "  \"go generics benchmarks\"  \n", want: "go generics benchmarks"},
		{name: "echoed label", answer: "Search query: stenciling gcshape", want: "stenciling gcshape"},
		{name: "too short", answer: "go", want: FallbackQuery("original question here")},
		{name: "empty", answer: "   ", want: FallbackQuery("original question here")},
		{name: "error", err: errProviderDown, want: FallbackQuery("original question here")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scriptedLLM{refine: func(string) (string, error) { return tt.answer, tt.err }}
			planner := NewQueryPlanner(provider, time.Second)

			got := planner.Next(context.Background(), "original question here", []Finding{finding("a")}, 1)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryPlanner_DigestUsesFirstFive(t *testing.T) {
	provider := answering("WRITE")
	planner := NewQueryPlanner(provider, time.Second)

	var findings []Finding
	for i := 0; i < 8; i++ {
		findings = append(findings, Finding{
			SourceID: fmt.Sprintf("s%d", i),
			Title:    fmt.Sprintf("Title %d", i),
			Excerpt:  strings.Repeat("x", 500),
		})
	}
	planner.Next(context.Background(), "original question here", findings, 2)

	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "- Title 4: ")
	assert.NotContains(t, prompt, "Title 5")
	assert.Contains(t, prompt, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", 201))
}

func TestQueryPlanner_NoProviderFallsBack(t *testing.T) {
	planner := NewQueryPlanner(nil, time.Second)
	got := planner.Next(context.Background(), "original question here", []Finding{finding("a")}, 1)
	assert.Equal(t, "original question here details examples", got)
}
