package research

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Phase is a state of the research state machine.
type Phase string

const (
	PhasePending     Phase = "pending"
	PhaseResearching Phase = "researching"
	PhaseWriting     Phase = "writing"
	PhaseCompleted   Phase = "completed"
	PhaseFailed      Phase = "failed"
	PhaseCancelled   Phase = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// allowed transitions; researching may re-enter itself once per round.
var transitions = map[Phase][]Phase{
	PhasePending:     {PhaseResearching, PhaseFailed, PhaseCancelled},
	PhaseResearching: {PhaseResearching, PhaseWriting, PhaseFailed, PhaseCancelled},
	PhaseWriting:     {PhaseCompleted, PhaseFailed, PhaseCancelled},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

const (
	MinQueryLength    = 10
	MaxQueryLength    = 2000
	MinRoundLimit     = 1
	MaxRoundLimit     = 15
	DefaultRoundLimit = 5

	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// Finding is one retrieved source. SourceID is the dedup key.
type Finding struct {
	SourceID       string  `json:"source_id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Excerpt        string  `json:"content"`
	RelevanceScore float64 `json:"score"`
	FullText       string  `json:"raw_content,omitempty"`
}

// SessionParams are the caller-supplied inputs of a research task.
type SessionParams struct {
	Query          string
	TargetLocation string
	RoundLimit     int
	SearchDepth    string
}

// Validate checks the query length and round limit ranges. Length counts
// raw characters, surrounding whitespace included.
func (p SessionParams) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return fmt.Errorf("%w: query must not be blank", ErrValidation)
	}
	n := utf8.RuneCountInString(p.Query)
	if n < MinQueryLength || n > MaxQueryLength {
		return fmt.Errorf("%w: query must be between %d and %d characters, got %d",
			ErrValidation, MinQueryLength, MaxQueryLength, n)
	}
	if p.RoundLimit < MinRoundLimit || p.RoundLimit > MaxRoundLimit {
		return fmt.Errorf("%w: max searches must be between %d and %d, got %d",
			ErrValidation, MinRoundLimit, MaxRoundLimit, p.RoundLimit)
	}
	switch p.SearchDepth {
	case "", DepthBasic, DepthAdvanced:
	default:
		return fmt.Errorf("%w: search depth must be %q or %q", ErrValidation, DepthBasic, DepthAdvanced)
	}
	return nil
}

// Session is the full mutable state of one research task.
//
// Only the engine goroutine running the session mutates it; everyone else
// reads through Snapshot or requests cancellation.
type Session struct {
	id             string
	originalQuery  string
	targetLocation string
	searchDepth    string
	roundLimit     int
	startedAt      time.Time
	events         *EventLog

	cancelRequested atomic.Bool

	mu            sync.RWMutex
	phase         Phase
	findings      []Finding
	roundCount    int
	summary       string
	savedLocation string
	errorDetail   string
	notice        string
	completedAt   time.Time
}

// NewSession validates params and returns a pending session.
func NewSession(p SessionParams) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	depth := p.SearchDepth
	if depth == "" {
		depth = DepthAdvanced
	}

	return &Session{
		id:             uuid.NewString(),
		originalQuery:  p.Query,
		targetLocation: p.TargetLocation,
		searchDepth:    depth,
		roundLimit:     p.RoundLimit,
		startedAt:      time.Now().UTC(),
		events:         NewEventLog(),
		phase:          PhasePending,
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Query() string { return s.originalQuery }

func (s *Session) RoundLimit() int { return s.roundLimit }

func (s *Session) Events() *EventLog { return s.events }

func (s *Session) StartedAt() time.Time { return s.startedAt }

func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// RequestCancel sets the cooperative cancellation flag. The engine observes it
// at the next round boundary.
func (s *Session) RequestCancel() error {
	s.mu.RLock()
	phase := s.phase
	s.mu.RUnlock()

	if phase.Terminal() {
		return fmt.Errorf("%w: task already %s", ErrInvalidState, phase)
	}
	s.cancelRequested.Store(true)
	return nil
}

func (s *Session) CancelRequested() bool {
	return s.cancelRequested.Load()
}

// Snapshot is a point-in-time copy of a session for readers.
type Snapshot struct {
	ID              string     `json:"task_id"`
	Query           string     `json:"query"`
	TargetLocation  string     `json:"target_project"`
	SearchDepth     string     `json:"search_depth"`
	Phase           Phase      `json:"status"`
	RoundCount      int        `json:"search_count"`
	RoundLimit      int        `json:"max_searches"`
	FindingsCount   int        `json:"findings_count"`
	Findings        []Finding  `json:"findings"`
	Summary         string     `json:"summary"`
	SavedLocation   string     `json:"saved_path,omitempty"`
	ErrorDetail     string     `json:"error,omitempty"`
	Notice          string     `json:"notice,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	EventCount      int        `json:"event_count"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	findings := make([]Finding, len(s.findings))
	copy(findings, s.findings)

	snap := Snapshot{
		ID:              s.id,
		Query:           s.originalQuery,
		TargetLocation:  s.targetLocation,
		SearchDepth:     s.searchDepth,
		Phase:           s.phase,
		RoundCount:      s.roundCount,
		RoundLimit:      s.roundLimit,
		FindingsCount:   len(s.findings),
		Findings:        findings,
		Summary:         s.summary,
		SavedLocation:   s.savedLocation,
		ErrorDetail:     s.errorDetail,
		Notice:          s.notice,
		StartedAt:       s.startedAt,
		CancelRequested: s.cancelRequested.Load(),
		EventCount:      s.events.Len(),
	}
	if !s.completedAt.IsZero() {
		t := s.completedAt
		snap.CompletedAt = &t
	}
	return snap
}

// --- engine-side mutators ---

// transition moves the session to the next phase. apply runs under the same
// lock before the phase changes, so terminal fields are written exactly once.
func (s *Session) transition(to Phase, apply func()) (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.phase
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}
	if apply != nil {
		apply()
	}
	s.phase = to
	if to.Terminal() {
		s.completedAt = time.Now().UTC()
	}
	return from, nil
}

// addFindings merges incoming findings and returns how many were new.
func (s *Session) addFindings(incoming []Finding) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Terminal() {
		return 0, fmt.Errorf("%w: session is %s", ErrInvalidState, s.phase)
	}
	merged, added := Merge(s.findings, incoming)
	s.findings = merged
	return added, nil
}

// completeRound counts one finished retrieval round.
func (s *Session) completeRound() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Terminal() {
		return s.roundCount, fmt.Errorf("%w: session is %s", ErrInvalidState, s.phase)
	}
	if s.roundCount >= s.roundLimit {
		return s.roundCount, fmt.Errorf("round limit %d already reached", s.roundLimit)
	}
	s.roundCount++
	return s.roundCount, nil
}

func (s *Session) setSummary(summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseWriting {
		return fmt.Errorf("%w: summary can only be set while writing", ErrInvalidState)
	}
	if s.summary != "" {
		return fmt.Errorf("%w: summary already set", ErrInvalidState)
	}
	s.summary = summary
	return nil
}
