package dto

import (
	"time"

	"claudebuddy-be/pkg/research"
)

type StartResearchRequest struct {
	Query         string `json:"query" validate:"required,min=10,max=2000"`
	TargetProject string `json:"target_project"`
	MaxSearches   int    `json:"max_searches" validate:"omitempty,min=1,max=15"`
	SearchDepth   string `json:"search_depth" validate:"omitempty,oneof=basic advanced"`
}

type StartResearchResponse struct {
	TaskId  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ResearchStatusResponse struct {
	TaskId          string     `json:"task_id"`
	Status          string     `json:"status"`
	Query           string     `json:"query"`
	TargetProject   string     `json:"target_project,omitempty"`
	SearchDepth     string     `json:"search_depth"`
	SearchCount     int        `json:"search_count"`
	MaxSearches     int        `json:"max_searches"`
	CurrentPhase    string     `json:"current_phase"`
	FindingsCount   int        `json:"findings_count"`
	CancelRequested bool       `json:"cancel_requested"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	SavedPath       string     `json:"saved_path,omitempty"`
	Error           string     `json:"error,omitempty"`
	Notice          string     `json:"notice,omitempty"`
}

type ResearchResultResponse struct {
	TaskId      string             `json:"task_id"`
	Status      string             `json:"status"`
	Query       string             `json:"query"`
	Summary     string             `json:"summary"`
	Findings    []research.Finding `json:"findings"`
	SearchCount int                `json:"search_count"`
	SavedPath   string             `json:"saved_path,omitempty"`
	Error       string             `json:"error,omitempty"`
	Notice      string             `json:"notice,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Archived    bool               `json:"archived"` // served from the report archive
}

type ResearchTaskListResponse struct {
	Tasks []ResearchStatusResponse `json:"tasks"`
}

type CancelResearchResponse struct {
	TaskId  string `json:"task_id"`
	Message string `json:"message"`
}

func NewResearchStatusResponse(s research.Snapshot) ResearchStatusResponse {
	return ResearchStatusResponse{
		TaskId:          s.ID,
		Status:          string(s.Phase),
		Query:           s.Query,
		TargetProject:   s.TargetLocation,
		SearchDepth:     s.SearchDepth,
		SearchCount:     s.RoundCount,
		MaxSearches:     s.RoundLimit,
		CurrentPhase:    string(s.Phase),
		FindingsCount:   s.FindingsCount,
		CancelRequested: s.CancelRequested,
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
		SavedPath:       s.SavedLocation,
		Error:           s.ErrorDetail,
		Notice:          s.Notice,
	}
}

type ListReportsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=completed failed cancelled"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type ResearchReportSummary struct {
	Id            string     `json:"id"`
	TaskId        string     `json:"task_id"`
	Query         string     `json:"query"`
	Status        string     `json:"status"`
	SearchCount   int        `json:"search_count"`
	FindingsCount int        `json:"findings_count"`
	SavedPath     string     `json:"saved_path,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type ResearchReportListResponse struct {
	Reports []ResearchReportSummary `json:"reports"`
	Total   int64                   `json:"total"`
}
