package okr

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusOnTrack   Status = "on_track"
	StatusAtRisk    Status = "at_risk"
	StatusCompleted Status = "completed"
)

// ProgressSnapshot is one entry of a derived-stats progress history.
type ProgressSnapshot struct {
	At         time.Time `json:"at"`
	Progress   int       `json:"progress"`
	KeyResults []int     `json:"key_results"`
}

// ProgressTrack holds the projection fields shared by objective and corporate stats.
type ProgressTrack struct {
	Progress    int        `gorm:"column:progress;not null;default:0" json:"progress"`
	Frozen      bool       `gorm:"column:frozen;not null;default:false" json:"frozen"`
	Status      Status     `gorm:"column:status;not null;default:'on_track';index" json:"status"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	History datatypes.JSONSlice[ProgressSnapshot] `gorm:"column:history;not null" json:"history"`

	CheckInCount         int        `gorm:"column:check_in_count;not null;default:0" json:"check_in_count"`
	LastCheckInAt        *time.Time `gorm:"column:last_check_in_at" json:"last_check_in_at,omitempty"`
	CheckInFrequencyDays float64    `gorm:"column:check_in_frequency_days;not null;default:0" json:"check_in_frequency_days"`

	Contributors datatypes.JSONSlice[uuid.UUID] `gorm:"column:contributors;not null" json:"contributors"`
}

func (t *ProgressTrack) ensureSlices() {
	if t.History == nil {
		t.History = datatypes.JSONSlice[ProgressSnapshot]{}
	}
	if t.Contributors == nil {
		t.Contributors = datatypes.JSONSlice[uuid.UUID]{}
	}
}

type ObjectiveStats struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ObjectiveID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"objective_id"`

	ParentCorporateObjectiveID *uuid.UUID `gorm:"type:uuid;column:parent_corporate_objective_id;index" json:"parent_corporate_objective_id,omitempty"`
	ParentKeyResultIndex       *int       `gorm:"column:parent_key_result_index" json:"parent_key_result_index,omitempty"`

	ProgressTrack `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ObjectiveStats) TableName() string { return "okr_objective_stats" }

func (s *ObjectiveStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.ensureSlices()
	return nil
}

type CorporateObjectiveStats struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CorporateObjectiveID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"corporate_objective_id"`

	ProgressTrack `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CorporateObjectiveStats) TableName() string { return "okr_corporate_objective_stats" }

func (s *CorporateObjectiveStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.ensureSlices()
	return nil
}
