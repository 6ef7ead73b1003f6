package research

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  SessionParams
		wantErr bool
	}{
		{name: "ok", params: SessionParams{Query: "long enough query", RoundLimit: 5}},
		{name: "ok bounds", params: SessionParams{Query: strings.Repeat("q", 10), RoundLimit: 1}},
		{name: "ok upper", params: SessionParams{Query: strings.Repeat("q", 2000), RoundLimit: 15, SearchDepth: DepthBasic}},
		{name: "short query", params: SessionParams{Query: "too short", RoundLimit: 5}, wantErr: true},
		{name: "padding counts toward minimum", params: SessionParams{Query: "   short    ", RoundLimit: 5}},
		{name: "blank query", params: SessionParams{Query: strings.Repeat(" ", 12), RoundLimit: 5}, wantErr: true},
		{name: "padding counts toward maximum", params: SessionParams{Query: strings.Repeat("q", 2000) + "  ", RoundLimit: 5}, wantErr: true},
		{name: "long query", params: SessionParams{Query: strings.Repeat("q", 2001), RoundLimit: 5}, wantErr: true},
		{name: "zero rounds", params: SessionParams{Query: "long enough query", RoundLimit: 0}, wantErr: true},
		{name: "too many rounds", params: SessionParams{Query: "long enough query", RoundLimit: 16}, wantErr: true},
		{name: "bad depth", params: SessionParams{Query: "long enough query", RoundLimit: 5, SearchDepth: "deep"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				_, nerr := NewSession(tt.params)
				assert.ErrorIs(t, nerr, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewSession(t *testing.T) {
	s, err := NewSession(SessionParams{Query: "a perfectly fine query", RoundLimit: 3})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, PhasePending, snap.Phase)
	assert.Equal(t, DepthAdvanced, snap.SearchDepth)
	assert.Equal(t, 0, snap.RoundCount)
	assert.Nil(t, snap.CompletedAt)
	assert.Equal(t, 0, snap.EventCount)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PhasePending, PhaseResearching))
	assert.True(t, CanTransition(PhaseResearching, PhaseResearching))
	assert.True(t, CanTransition(PhaseWriting, PhaseCompleted))
	assert.True(t, CanTransition(PhaseWriting, PhaseCancelled))

	assert.False(t, CanTransition(PhasePending, PhaseWriting))
	assert.False(t, CanTransition(PhaseWriting, PhaseResearching))
	assert.False(t, CanTransition(PhaseResearching, PhasePending))
	for _, terminal := range []Phase{PhaseCompleted, PhaseFailed, PhaseCancelled} {
		for _, to := range []Phase{PhasePending, PhaseResearching, PhaseWriting, PhaseCompleted, PhaseFailed, PhaseCancelled} {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestSession_TerminalIsFrozen(t *testing.T) {
	s := newTestSession(t, "freeze after the end", 2)

	_, err := s.transition(PhaseResearching, nil)
	require.NoError(t, err)
	_, err = s.addFindings([]Finding{finding("a")})
	require.NoError(t, err)
	_, err = s.transition(PhaseFailed, func() { s.errorDetail = "boom" })
	require.NoError(t, err)

	_, err = s.addFindings([]Finding{finding("b")})
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.completeRound()
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.transition(PhaseResearching, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, s.RequestCancel(), ErrInvalidState)

	snap := s.Snapshot()
	assert.Equal(t, "boom", snap.ErrorDetail)
	assert.Equal(t, 1, snap.FindingsCount)
	require.NotNil(t, snap.CompletedAt)
}

func TestSession_RoundLimitGuard(t *testing.T) {
	s := newTestSession(t, "only one round allowed", 1)
	_, err := s.transition(PhaseResearching, nil)
	require.NoError(t, err)

	n, err := s.completeRound()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.completeRound()
	assert.Error(t, err)
	assert.Equal(t, 1, s.Snapshot().RoundCount)
}

func TestSession_SummarySetOnce(t *testing.T) {
	s := newTestSession(t, "summary written once only", 1)
	assert.ErrorIs(t, s.setSummary("early"), ErrInvalidState)

	_, _ = s.transition(PhaseResearching, nil)
	_, _ = s.transition(PhaseWriting, nil)
	require.NoError(t, s.setSummary("final"))
	assert.ErrorIs(t, s.setSummary("again"), ErrInvalidState)
	assert.Equal(t, "final", s.Snapshot().Summary)
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := newTestSession(t, "snapshot isolation test", 2)
	_, _ = s.transition(PhaseResearching, nil)
	_, _ = s.addFindings([]Finding{finding("a")})

	snap := s.Snapshot()
	snap.Findings[0].Title = "mutated"

	assert.Equal(t, "a", s.Snapshot().Findings[0].Title)
}

func TestEventLog_WaitWakesOnAppend(t *testing.T) {
	log := NewEventLog()

	got := make(chan []Event, 1)
	go func() {
		batch, _, _ := log.Wait(context.Background(), 0)
		got <- batch
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := log.Append(EventStatus, map[string]interface{}{"status": "researching"})
	require.NoError(t, err)

	select {
	case batch := <-got:
		require.Len(t, batch, 1)
		assert.Equal(t, 0, batch[0].Index)
	case <-time.After(time.Second):
		t.Fatal("reader was not woken")
	}
}

func TestEventLog_CloseAndCursor(t *testing.T) {
	log := NewEventLog()
	_, _ = log.Append(EventStatus, nil)
	_, _ = log.Append(EventProgress, nil)
	_, err := log.Append(EventComplete, nil)
	require.NoError(t, err)

	_, err = log.Append(EventProgress, nil)
	assert.Error(t, err)
	assert.Equal(t, 3, log.Len())
	assert.True(t, log.Closed())

	batch, closed, err := log.Wait(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, closed)
	require.Len(t, batch, 2)
	assert.Equal(t, EventProgress, batch[0].Kind)

	batch, closed, err = log.Wait(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Empty(t, batch)
}

func TestEventLog_WaitHonoursContext(t *testing.T) {
	log := NewEventLog()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := log.Wait(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
