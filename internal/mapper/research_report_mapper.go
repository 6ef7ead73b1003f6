package mapper

import (
	"encoding/json"

	"claudebuddy-be/internal/entity"
	"claudebuddy-be/internal/model"
	"claudebuddy-be/pkg/research"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ResearchReportMapper struct{}

func NewResearchReportMapper() *ResearchReportMapper {
	return &ResearchReportMapper{}
}

// FromSnapshot builds the archive record for a finished task.
func (m *ResearchReportMapper) FromSnapshot(s research.Snapshot) *entity.ResearchReport {
	return &entity.ResearchReport{
		Id:            uuid.New(),
		TaskId:        s.ID,
		Query:         s.Query,
		TargetProject: s.TargetLocation,
		Status:        s.Phase,
		RoundCount:    s.RoundCount,
		RoundLimit:    s.RoundLimit,
		Summary:       s.Summary,
		SavedPath:     s.SavedLocation,
		Notice:        s.Notice,
		ErrorDetail:   s.ErrorDetail,
		Findings:      s.Findings,
		StartedAt:     s.StartedAt,
		CompletedAt:   s.CompletedAt,
	}
}

func (m *ResearchReportMapper) ToEntity(r *model.ResearchReport) (*entity.ResearchReport, error) {
	if r == nil {
		return nil, nil
	}

	findings := []research.Finding{}
	if len(r.Findings) > 0 {
		if err := json.Unmarshal(r.Findings, &findings); err != nil {
			return nil, err
		}
	}

	return &entity.ResearchReport{
		Id:            r.Id,
		TaskId:        r.TaskId,
		Query:         r.Query,
		TargetProject: r.TargetProject,
		Status:        research.Phase(r.Status),
		RoundCount:    r.RoundCount,
		RoundLimit:    r.RoundLimit,
		Summary:       r.Summary,
		SavedPath:     r.SavedPath,
		Notice:        r.Notice,
		ErrorDetail:   r.ErrorDetail,
		Findings:      findings,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		CreatedAt:     r.CreatedAt,
	}, nil
}

func (m *ResearchReportMapper) ToModel(r *entity.ResearchReport) (*model.ResearchReport, error) {
	if r == nil {
		return nil, nil
	}

	findings := r.Findings
	if findings == nil {
		findings = []research.Finding{}
	}
	raw, err := json.Marshal(findings)
	if err != nil {
		return nil, err
	}

	return &model.ResearchReport{
		Id:            r.Id,
		TaskId:        r.TaskId,
		Query:         r.Query,
		TargetProject: r.TargetProject,
		Status:        string(r.Status),
		RoundCount:    r.RoundCount,
		RoundLimit:    r.RoundLimit,
		Summary:       r.Summary,
		SavedPath:     r.SavedPath,
		Notice:        r.Notice,
		ErrorDetail:   r.ErrorDetail,
		Findings:      datatypes.JSON(raw),
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		CreatedAt:     r.CreatedAt,
	}, nil
}
