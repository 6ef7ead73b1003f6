package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/pkg/llm"
	"claudebuddy-be/pkg/search"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errProviderDown = errors.New("provider down")

// scriptedLLM routes each prompt to a handler based on which step sent it.
type scriptedLLM struct {
	refine func(prompt string) (string, error)
	judge  func(prompt string) (string, error)
	write  func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
	opts    []llm.Options
}

func (l *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	var o llm.Options
	for _, opt := range options {
		opt(&o)
	}
	l.mu.Lock()
	l.prompts = append(l.prompts, prompt)
	l.opts = append(l.opts, o)
	l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var handler func(string) (string, error)
	switch {
	case strings.Contains(prompt, "SUFFICIENT information"):
		handler = l.judge
	case strings.Contains(prompt, "NEW, DIFFERENT search query"):
		handler = l.refine
	case strings.Contains(prompt, "research synthesizer"):
		handler = l.write
	}
	if handler == nil {
		return "", errors.New("unexpected prompt")
	}
	return handler(prompt)
}

func (l *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", errors.New("empty history")
	}
	return l.Generate(ctx, history[len(history)-1].Content, options...)
}

func (l *scriptedLLM) calls(marker string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.prompts {
		if strings.Contains(p, marker) {
			n++
		}
	}
	return n
}

// answering returns an LLM that refines queries, judges with verdict and
// writes a short report.
func answering(verdict string) *scriptedLLM {
	return &scriptedLLM{
		refine: func(string) (string, error) { return "refined follow-up query", nil },
		judge:  func(string) (string, error) { return verdict, nil },
		write:  func(string) (string, error) { return "## Executive Summary\n\nAll good.", nil },
	}
}

func failingLLM() *scriptedLLM {
	fail := func(string) (string, error) { return "", errProviderDown }
	return &scriptedLLM{refine: fail, judge: fail, write: fail}
}

// scriptedSearcher returns rounds[i] on the i-th call, or err when set.
type scriptedSearcher struct {
	rounds   [][]search.Result
	err      error
	onSearch func(call int)

	mu      sync.Mutex
	queries []string
}

func (s *scriptedSearcher) Name() string { return "scripted" }

func (s *scriptedSearcher) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	s.mu.Lock()
	call := len(s.queries)
	s.queries = append(s.queries, req.Query)
	s.mu.Unlock()

	if s.onSearch != nil {
		s.onSearch(call)
	}
	if s.err != nil {
		return nil, s.err
	}
	if call < len(s.rounds) {
		return s.rounds[call], nil
	}
	return nil, nil
}

func (s *scriptedSearcher) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// results builds n distinct results whose URLs start at offset.
func results(offset, n int) []search.Result {
	out := make([]search.Result, 0, n)
	for i := offset; i < offset+n; i++ {
		out = append(out, search.Result{
			Title:   fmt.Sprintf("Source %d", i),
			URL:     fmt.Sprintf("https://example.com/articles/%d", i),
			Content: fmt.Sprintf("Excerpt for source %d", i),
			Score:   0.5,
		})
	}
	return out
}

// perRound gives every round n fresh results.
func perRound(rounds, n int) [][]search.Result {
	out := make([][]search.Result, rounds)
	for r := range out {
		out[r] = results(r*n, n)
	}
	return out
}

// blockingSearcher never answers until its context ends.
type blockingSearcher struct{}

func (blockingSearcher) Name() string { return "blocking" }

func (blockingSearcher) Search(ctx context.Context, _ search.Request) ([]search.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type memorySaver struct {
	mu      sync.Mutex
	targets []string
	docs    []string
	err     error
}

func (m *memorySaver) Save(_ context.Context, target, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, target)
	m.docs = append(m.docs, content)
	return target + "/research/report.md", nil
}

func newTestEngine(provider llm.LLMProvider, searcher search.Provider, saver Saver) *Engine {
	return NewEngine(provider, searcher, saver, DefaultOptions(), logger.NewNopLogger())
}

func newTestSession(t *testing.T, query string, limit int) *Session {
	t.Helper()
	s, err := NewSession(SessionParams{Query: query, TargetLocation: "/tmp/project", RoundLimit: limit})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func eventsOf(kind EventKind, events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
