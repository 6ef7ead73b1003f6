package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/pkg/llm"
	"claudebuddy-be/pkg/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const logModule = "RESEARCH"

// Saver persists a finished report and returns where it was written.
type Saver interface {
	Save(ctx context.Context, target, content string) (string, error)
}

// Options tunes the engine. Zero values fall back to DefaultOptions.
type Options struct {
	ProviderTimeout  time.Duration
	SynthesisTimeout time.Duration
	ResultsPerRound  int
}

func DefaultOptions() Options {
	return Options{
		ProviderTimeout:  30 * time.Second,
		SynthesisTimeout: 120 * time.Second,
		ResultsPerRound:  5,
	}
}

// EventHook observes every event appended by the engine, together with the
// session state right after the append.
type EventHook func(snap Snapshot, evt Event)

// Engine drives sessions through the research state machine. It holds no
// per-session state and is safe to share across concurrently running sessions.
type Engine struct {
	llm      llm.LLMProvider
	searcher search.Provider
	saver    Saver
	opts     Options
	logger   logger.ILogger

	planner     *QueryPlanner
	evaluator   *Evaluator
	synthesizer *Synthesizer

	hooksMu sync.RWMutex
	hooks   []EventHook

	tracer    trace.Tracer
	rounds    metric.Int64Counter
	decisions metric.Int64Counter
	finished  metric.Int64Counter
}

func NewEngine(provider llm.LLMProvider, searcher search.Provider, saver Saver, opts Options, log logger.ILogger) *Engine {
	def := DefaultOptions()
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = def.ProviderTimeout
	}
	if opts.SynthesisTimeout <= 0 {
		opts.SynthesisTimeout = def.SynthesisTimeout
	}
	if opts.ResultsPerRound <= 0 {
		opts.ResultsPerRound = def.ResultsPerRound
	}

	e := &Engine{
		llm:         provider,
		searcher:    searcher,
		saver:       saver,
		opts:        opts,
		logger:      log,
		planner:     NewQueryPlanner(provider, opts.ProviderTimeout),
		evaluator:   NewEvaluator(provider, opts.ProviderTimeout),
		synthesizer: NewSynthesizer(provider, opts.SynthesisTimeout),
		tracer:      otel.Tracer("claudebuddy-be/research"),
	}

	meter := otel.GetMeterProvider().Meter("claudebuddy-be/research")
	e.rounds, _ = meter.Int64Counter("research.rounds",
		metric.WithDescription("Completed retrieval rounds"))
	e.decisions, _ = meter.Int64Counter("research.decisions",
		metric.WithDescription("Sufficiency decisions by verdict and rule"))
	e.finished, _ = meter.Int64Counter("research.tasks_finished",
		metric.WithDescription("Tasks that reached a terminal phase"))
	return e
}

// OnEvent registers a hook. Hooks run synchronously on the engine goroutine.
func (e *Engine) OnEvent(h EventHook) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, h)
}

// Ready reports whether both capabilities are configured.
func (e *Engine) Ready() error {
	var missing []string
	if e.llm == nil {
		missing = append(missing, "text generation")
	}
	if e.searcher == nil {
		missing = append(missing, "web search")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s provider", ErrConfiguration, strings.Join(missing, " and "))
	}
	return nil
}

// Run drives s until it reaches a terminal phase. It is meant to run on its
// own goroutine; only that goroutine mutates s.
func (e *Engine) Run(ctx context.Context, s *Session) {
	ctx, span := e.tracer.Start(ctx, "research.run", trace.WithAttributes(
		attribute.String("research.task_id", s.ID()),
		attribute.Int("research.round_limit", s.RoundLimit()),
	))
	defer span.End()

	for {
		phase := s.Phase()
		if phase.Terminal() {
			span.SetAttributes(attribute.String("research.phase", string(phase)))
			return
		}
		if err := e.step(ctx, s, phase); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.fail(ctx, s, err)
		}
	}
}

func (e *Engine) step(ctx context.Context, s *Session, phase Phase) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while %s: %v", phase, r)
		}
	}()

	switch phase {
	case PhasePending:
		return e.begin(ctx, s)
	case PhaseResearching:
		return e.research(ctx, s)
	case PhaseWriting:
		return e.write(ctx, s)
	default:
		return fmt.Errorf("%w: no step for phase %s", ErrInvalidState, phase)
	}
}

func (e *Engine) begin(ctx context.Context, s *Session) error {
	if err := e.Ready(); err != nil {
		return err
	}
	if s.CancelRequested() {
		return e.cancel(ctx, s, "Research cancelled before it started")
	}
	return e.moveTo(ctx, s, PhaseResearching, nil, EventStatus, map[string]interface{}{
		"message": "Starting research on: " + s.Query(),
	})
}

// research runs one round and evaluates the result. Cancellation is honoured
// at both round boundaries; a round in flight always finishes.
func (e *Engine) research(ctx context.Context, s *Session) error {
	if s.CancelRequested() {
		return e.cancel(ctx, s, "Research cancelled")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("research interrupted: %w", err)
	}

	before := s.Snapshot()
	round := before.RoundCount

	roundCtx, span := e.tracer.Start(ctx, "research.round", trace.WithAttributes(
		attribute.String("research.task_id", s.ID()),
		attribute.Int("research.round", round+1),
	))
	query := e.planner.Next(roundCtx, s.Query(), before.Findings, round)
	found, searchErr := e.retrieve(roundCtx, s, query)
	if searchErr != nil {
		span.RecordError(searchErr)
	}
	span.End()

	added, err := s.addFindings(found)
	if err != nil {
		return err
	}
	count, err := s.completeRound()
	if err != nil {
		return err
	}
	e.rounds.Add(ctx, 1)

	after := s.Snapshot()
	progress := map[string]interface{}{
		"round":        count,
		"max_searches": after.RoundLimit,
		"query":        query,
		"new_findings": added,
		"total":        after.FindingsCount,
		"message":      fmt.Sprintf("Searched for: %s\nFound %d new results.", query, added),
	}
	if searchErr != nil {
		progress["search_error"] = searchErr.Error()
		progress["message"] = "Search error: " + searchErr.Error()
		e.logger.Warn(logModule, "Search round failed", map[string]interface{}{
			"task_id": s.ID(),
			"round":   count,
			"error":   searchErr.Error(),
		})
	}
	if err := e.emit(s, EventProgress, progress); err != nil {
		return err
	}

	if s.CancelRequested() {
		return e.cancel(ctx, s, fmt.Sprintf("Research cancelled after %d rounds", count))
	}

	decision := e.decide(ctx, s, after)
	payload := map[string]interface{}{
		"verdict":      string(decision.Verdict),
		"rule":         string(decision.Rule),
		"search_count": count,
	}
	if decision.Verdict == VerdictProceed {
		payload["message"] = fmt.Sprintf("Sufficient information gathered (%s), writing summary", decision.Rule)
		return e.moveTo(ctx, s, PhaseWriting, nil, EventStatus, payload)
	}
	payload["message"] = fmt.Sprintf("Continuing research (%s)", decision.Rule)
	return e.moveTo(ctx, s, PhaseResearching, nil, EventStatus, payload)
}

// retrieve converts provider results into findings. Failures are returned
// with zero findings so the caller can record them and keep going.
func (e *Engine) retrieve(ctx context.Context, s *Session, query string) ([]Finding, error) {
	req := search.Request{
		Query:           query,
		MaxResults:      e.opts.ResultsPerRound,
		Depth:           s.searchDepth,
		IncludeFullText: true,
	}
	results, err := callWithTimeout(ctx, e.opts.ProviderTimeout, func(ctx context.Context) ([]search.Result, error) {
		return e.searcher.Search(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	findings := make([]Finding, 0, len(results))
	for _, r := range results {
		id := CanonicalSourceID(r.URL)
		if id == "" {
			continue
		}
		findings = append(findings, Finding{
			SourceID:       id,
			Title:          r.Title,
			URL:            r.URL,
			Excerpt:        r.Content,
			RelevanceScore: r.Score,
			FullText:       r.RawContent,
		})
	}
	return findings, nil
}

func (e *Engine) decide(ctx context.Context, s *Session, snap Snapshot) Decision {
	ctx, span := e.tracer.Start(ctx, "research.decide")
	defer span.End()

	d := e.evaluator.Decide(ctx, DecisionInput{
		Query:      s.Query(),
		RoundCount: snap.RoundCount,
		RoundLimit: snap.RoundLimit,
		Findings:   snap.Findings,
	})
	attrs := []attribute.KeyValue{
		attribute.String("research.verdict", string(d.Verdict)),
		attribute.String("research.rule", string(d.Rule)),
	}
	span.SetAttributes(attrs...)
	e.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
	return d
}

func (e *Engine) write(ctx context.Context, s *Session) error {
	if s.CancelRequested() {
		return e.cancel(ctx, s, "Research cancelled before writing")
	}

	snap := s.Snapshot()
	synthCtx, span := e.tracer.Start(ctx, "research.synthesize", trace.WithAttributes(
		attribute.Int("research.findings", snap.FindingsCount),
	))
	summary, err := e.synthesizer.Write(synthCtx, s.Query(), snap.Findings)
	span.End()
	if err != nil {
		return err
	}
	if err := s.setSummary(summary); err != nil {
		return err
	}

	// A cancel accepted during synthesis keeps the summary but skips saving.
	if s.CancelRequested() {
		return e.cancel(ctx, s, "Research cancelled during writing; the summary was kept but not saved")
	}

	saved, notice := e.persist(ctx, s, summary)
	return e.moveTo(ctx, s, PhaseCompleted, func() {
		s.savedLocation = saved
		s.notice = notice
	}, EventComplete, map[string]interface{}{
		"saved_path":     saved,
		"findings_count": snap.FindingsCount,
		"round_count":    snap.RoundCount,
		"notice":         notice,
	})
}

// persist saves the report. A failure never fails the task; it is reported
// back as a notice instead.
func (e *Engine) persist(ctx context.Context, s *Session, summary string) (string, string) {
	if e.saver == nil {
		return "", "Report was not saved: no report storage configured"
	}
	if strings.TrimSpace(s.targetLocation) == "" {
		return "", "Report was not saved: no target project given"
	}

	doc := fmt.Sprintf("# Research: %s\n\n%s\n", s.Query(), summary)
	path, err := callWithTimeout(ctx, e.opts.ProviderTimeout, func(ctx context.Context) (string, error) {
		return e.saver.Save(ctx, s.targetLocation, doc)
	})
	if err != nil {
		e.logger.Warn(logModule, "Failed to save research report", map[string]interface{}{
			"task_id": s.ID(),
			"target":  s.targetLocation,
			"error":   err.Error(),
		})
		return "", "Report was not saved: " + err.Error()
	}
	return path, ""
}

func (e *Engine) cancel(ctx context.Context, s *Session, message string) error {
	return e.moveTo(ctx, s, PhaseCancelled, nil, EventCancelled, map[string]interface{}{
		"message": message,
	})
}

func (e *Engine) fail(ctx context.Context, s *Session, cause error) {
	detail := cause.Error()
	err := e.moveTo(ctx, s, PhaseFailed, func() {
		s.errorDetail = detail
	}, EventError, map[string]interface{}{
		"error": detail,
	})
	if err != nil {
		e.logger.Error(logModule, "Could not mark task as failed", map[string]interface{}{
			"task_id": s.ID(),
			"cause":   detail,
			"error":   err.Error(),
		})
	}
}

// moveTo performs a phase transition and appends its event.
func (e *Engine) moveTo(ctx context.Context, s *Session, to Phase, apply func(), kind EventKind, payload map[string]interface{}) error {
	from, err := s.transition(to, apply)
	if err != nil {
		return err
	}
	payload["status"] = string(to)

	details := map[string]interface{}{
		"task_id": s.ID(),
		"from":    string(from),
		"to":      string(to),
	}
	if to == PhaseFailed {
		details["error"] = payload["error"]
		e.logger.Error(logModule, "Research task failed", details)
	} else {
		e.logger.Info(logModule, "Research phase transition", details)
	}

	if to.Terminal() {
		e.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("research.phase", string(to))))
	}
	return e.emit(s, kind, payload)
}

func (e *Engine) emit(s *Session, kind EventKind, payload map[string]interface{}) error {
	evt, err := s.events.Append(kind, payload)
	if err != nil {
		return err
	}

	e.hooksMu.RLock()
	hooks := e.hooks
	e.hooksMu.RUnlock()
	if len(hooks) == 0 {
		return nil
	}
	snap := s.Snapshot()
	for _, h := range hooks {
		h(snap, evt)
	}
	return nil
}
