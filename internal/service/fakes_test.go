package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"claudebuddy-be/internal/entity"
	"claudebuddy-be/internal/repository/specification"
	"claudebuddy-be/pkg/events"
	"claudebuddy-be/pkg/llm"
	"claudebuddy-be/pkg/search"
)

// keywordLLM answers by recognising which research step sent the prompt.
type keywordLLM struct{}

func (keywordLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "SUFFICIENT information"):
		return "WRITE", nil
	case strings.Contains(prompt, "research synthesizer"):
		return "## Executive Summary\n\nDone.", nil
	default:
		return "follow-up search query", nil
	}
}

func (l keywordLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return l.Generate(ctx, history[len(history)-1].Content, options...)
}

// gatedSearcher returns two fresh results per call. With a gate set, each
// call blocks until the gate is closed or the context ends.
type gatedSearcher struct {
	gate  chan struct{}
	once  sync.Once
	calls atomic.Int32
}

func newGatedSearcher(gated bool) *gatedSearcher {
	s := &gatedSearcher{}
	if gated {
		s.gate = make(chan struct{})
	}
	return s
}

func (s *gatedSearcher) release() {
	if s.gate != nil {
		s.once.Do(func() { close(s.gate) })
	}
}

func (s *gatedSearcher) Name() string { return "gated" }

func (s *gatedSearcher) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	n := int(s.calls.Add(1))
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := make([]search.Result, 0, 2)
	for i := 0; i < 2; i++ {
		id := n*10 + i
		out = append(out, search.Result{
			Title:   fmt.Sprintf("Result %d", id),
			URL:     fmt.Sprintf("https://example.com/r/%d", id),
			Content: "snippet",
		})
	}
	return out, nil
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports []*entity.ResearchReport
}

func (r *fakeReportRepo) Create(ctx context.Context, report *entity.ResearchReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *fakeReportRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byTask, ok := spec.(specification.ByTaskID); ok {
			for _, rep := range r.reports {
				if rep.TaskId == byTask.TaskID {
					return rep, nil
				}
			}
		}
	}
	return nil, nil
}

// filter honours ByStatus and Pagination; ordering is insertion order.
func (r *fakeReportRepo) filter(specs []specification.Specification) []*entity.ResearchReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ResearchReport, 0, len(r.reports))
	for _, rep := range r.reports {
		keep := true
		for _, spec := range specs {
			if byStatus, ok := spec.(specification.ByStatus); ok && string(rep.Status) != byStatus.Status {
				keep = false
			}
		}
		if keep {
			out = append(out, rep)
		}
	}
	for _, spec := range specs {
		if page, ok := spec.(specification.Pagination); ok {
			if page.Offset >= len(out) {
				return []*entity.ResearchReport{}
			}
			out = out[page.Offset:]
			if page.Limit < len(out) {
				out = out[:page.Limit]
			}
		}
	}
	return out
}

func (r *fakeReportRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchReport, error) {
	return r.filter(specs), nil
}

func (r *fakeReportRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.filter(specs))), nil
}

func (r *fakeReportRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

type recordingPublisher struct {
	delay time.Duration

	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func (p *recordingPublisher) indices() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.events))
	for _, e := range p.events {
		if re, ok := e.(events.ResearchEvent); ok {
			out = append(out, re.Index)
		}
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []string
}

func (n *recordingNotifier) Notify(ctx context.Context, taskID string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, taskID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tasks)
}
