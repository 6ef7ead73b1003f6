package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ResearchReport struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TaskId        string         `gorm:"type:varchar(64);not null;uniqueIndex"`
	Query         string         `gorm:"type:text;not null"`
	TargetProject string         `gorm:"type:text"`
	Status        string         `gorm:"type:varchar(32);not null;index"`
	RoundCount    int            `gorm:"not null;default:0"`
	RoundLimit    int            `gorm:"not null;default:5"`
	Summary       string         `gorm:"type:text"`
	SavedPath     string         `gorm:"type:text"`
	Notice        string         `gorm:"type:text"`
	ErrorDetail   string         `gorm:"type:text"`
	Findings      datatypes.JSON `gorm:"type:jsonb"`
	StartedAt     time.Time      `gorm:"not null"`
	CompletedAt   *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

func (ResearchReport) TableName() string {
	return "research_reports"
}
