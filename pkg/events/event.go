package events

import "time"

// Event is anything published on the lifecycle bus.
type Event interface {
	// EventType is the routing key, e.g. "progress" or "complete".
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ResearchEvent is a research task event together with the task state it
// was emitted in. It is the message format of the in-process lifecycle topic.
type ResearchEvent struct {
	TaskID      string                 `json:"task_id"`
	Status      string                 `json:"status"`
	Query       string                 `json:"query"`
	SearchCount int                    `json:"search_count"`
	Findings    int                    `json:"findings_count"`
	Index       int                    `json:"index"`
	Kind        string                 `json:"type"`
	Data        map[string]interface{} `json:"data"`
	EmittedAt   time.Time              `json:"timestamp"`
}

func (e ResearchEvent) EventType() string {
	return e.Kind
}

func (e ResearchEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id":        e.TaskID,
		"status":         e.Status,
		"query":          e.Query,
		"search_count":   e.SearchCount,
		"findings_count": e.Findings,
		"index":          e.Index,
		"type":           e.Kind,
		"data":           e.Data,
		"timestamp":      e.EmittedAt,
	}
}

func (e ResearchEvent) Timestamp() time.Time {
	return e.EmittedAt
}

// Terminal reports whether this is the last event of its task.
func (e ResearchEvent) Terminal() bool {
	switch e.Kind {
	case "complete", "error", "cancelled":
		return true
	}
	return false
}
