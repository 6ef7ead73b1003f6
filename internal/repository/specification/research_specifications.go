package specification

import "gorm.io/gorm"

type ByTaskID struct {
	TaskID string
}

func (s ByTaskID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("task_id = ?", s.TaskID)
}

// ByStatus filters reports by terminal phase.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
