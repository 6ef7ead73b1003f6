package contract

import (
	"context"

	"claudebuddy-be/internal/entity"
	"claudebuddy-be/internal/repository/specification"
)

// ResearchReportRepository archives finished research tasks so results
// outlive the in-memory registry.
type ResearchReportRepository interface {
	Create(ctx context.Context, report *entity.ResearchReport) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchReport, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchReport, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
