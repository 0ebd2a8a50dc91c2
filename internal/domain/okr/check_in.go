package okr

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckIn is the immutable audit record of one accepted batch update.
type CheckIn struct {
	ID          uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	ObjectiveID uuid.UUID                         `gorm:"type:uuid;not null;index" json:"objective_id"`
	AuthorID    uuid.UUID                         `gorm:"type:uuid;not null;index" json:"author_id"`
	Comment     *string                           `gorm:"column:comment" json:"comment,omitempty"`
	Deltas      datatypes.JSONSlice[CheckInDelta] `gorm:"column:deltas;not null" json:"deltas"`
	CreatedAt   time.Time                         `gorm:"not null;index" json:"created_at"`
}

func (CheckIn) TableName() string { return "okr_check_in" }

func (c *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CheckInDelta struct {
	Index            int     `json:"index"`
	PreviousActual   float64 `json:"previous_actual"`
	NewActual        float64 `json:"new_actual"`
	PreviousProgress int     `json:"previous_progress"`
	NewProgress      int     `json:"new_progress"`
}
