package entity

import (
	"time"

	"claudebuddy-be/pkg/research"

	"github.com/google/uuid"
)

// ResearchReport is the archived outcome of a terminal research task.
type ResearchReport struct {
	Id            uuid.UUID
	TaskId        string
	Query         string
	TargetProject string
	Status        research.Phase
	RoundCount    int
	RoundLimit    int
	Summary       string
	SavedPath     string
	Notice        string
	ErrorDetail   string
	Findings      []research.Finding
	StartedAt     time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
}
