package research

import (
	"context"
	"sync"
	"time"
)

// EventKind classifies an entry in a session's event log.
type EventKind string

const (
	EventStatus    EventKind = "status"
	EventProgress  EventKind = "progress"
	EventComplete  EventKind = "complete"
	EventError     EventKind = "error"
	EventCancelled EventKind = "cancelled"
)

// Terminal reports whether the kind closes the event log.
func (k EventKind) Terminal() bool {
	return k == EventComplete || k == EventError || k == EventCancelled
}

// Event is a single progress record. Index is the position in the log.
type Event struct {
	Index     int                    `json:"index"`
	Kind      EventKind              `json:"type"`
	Payload   map[string]interface{} `json:"data"`
	EmittedAt time.Time              `json:"timestamp"`
}

// EventLog is an append-only, never pruned sequence of events.
//
// Readers wait on a broadcast channel that is closed and replaced on every
// append, so there is no polling interval. Appending a terminal event closes
// the log; later appends fail.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
	closed bool
	notify chan struct{}
}

func NewEventLog() *EventLog {
	return &EventLog{notify: make(chan struct{})}
}

// Append records an event and wakes every waiting reader.
func (l *EventLog) Append(kind EventKind, payload map[string]interface{}) (Event, error) {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Event{}, errEventLogClosed
	}

	evt := Event{
		Index:     len(l.events),
		Kind:      kind,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
	l.events = append(l.events, evt)
	if kind.Terminal() {
		l.closed = true
	}

	close(l.notify)
	l.notify = make(chan struct{})
	return evt, nil
}

// Len returns the number of events appended so far.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Closed reports whether a terminal event has been appended.
func (l *EventLog) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Since returns a copy of the events at index from onwards.
func (l *EventLog) Since(from int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sliceFrom(from)
}

// Wait blocks until there is at least one event at index >= from, the log is
// closed, or ctx ends. When closed is true the returned batch holds every
// remaining event and no more will follow.
func (l *EventLog) Wait(ctx context.Context, from int) (batch []Event, closed bool, err error) {
	for {
		l.mu.RLock()
		batch = l.sliceFrom(from)
		closed = l.closed
		wake := l.notify
		l.mu.RUnlock()

		if len(batch) > 0 || closed {
			return batch, closed, nil
		}

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

func (l *EventLog) sliceFrom(from int) []Event {
	if from < 0 {
		from = 0
	}
	if from >= len(l.events) {
		return nil
	}
	out := make([]Event, len(l.events)-from)
	copy(out, l.events[from:])
	return out
}
