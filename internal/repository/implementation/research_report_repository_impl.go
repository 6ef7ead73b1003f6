package implementation

import (
	"context"
	"errors"

	"claudebuddy-be/internal/entity"
	"claudebuddy-be/internal/mapper"
	"claudebuddy-be/internal/model"
	"claudebuddy-be/internal/repository/contract"
	"claudebuddy-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResearchReportRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ResearchReportMapper
}

func NewResearchReportRepository(db *gorm.DB) contract.ResearchReportRepository {
	return &ResearchReportRepositoryImpl{
		db:     db,
		mapper: mapper.NewResearchReportMapper(),
	}
}

func (r *ResearchReportRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Create is idempotent per task id; a second archive of the same task is ignored.
func (r *ResearchReportRepositoryImpl) Create(ctx context.Context, report *entity.ResearchReport) error {
	m, err := r.mapper.ToModel(report)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "task_id"}}, DoNothing: true}).
		Create(m).Error
	if err != nil {
		return err
	}
	e, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*report = *e
	return nil
}

func (r *ResearchReportRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchReport, error) {
	var m model.ResearchReport
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *ResearchReportRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchReport, error) {
	var models []*model.ResearchReport
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	reports := make([]*entity.ResearchReport, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		reports = append(reports, e)
	}
	return reports, nil
}

func (r *ResearchReportRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ResearchReport{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
