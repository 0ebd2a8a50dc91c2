package okr

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CorporateObjective struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	CreatorID   uuid.UUID  `gorm:"type:uuid;not null" json:"creator_id"`
	Objective   string     `gorm:"column:objective;not null" json:"objective"`
	Description string     `gorm:"column:description" json:"description,omitempty"`
	Deadline    *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	Frozen      bool       `gorm:"column:frozen;not null;default:false" json:"frozen"`

	KeyResults datatypes.JSONSlice[KeyResult] `gorm:"column:key_results;not null" json:"key_results"`
	Progress   int                            `gorm:"column:progress;not null;default:0" json:"progress"`

	Version int `gorm:"column:version;not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CorporateObjective) TableName() string { return "okr_corporate_objective" }

func (c *CorporateObjective) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.KeyResults == nil {
		c.KeyResults = datatypes.JSONSlice[KeyResult]{}
	}
	return nil
}

func (c *CorporateObjective) Reaggregate() {
	c.Progress = AggregateKeyResults(c.KeyResults)
}

func (c *CorporateObjective) KeyResultProgresses() []int {
	return keyResultProgresses(c.KeyResults)
}

func (c *CorporateObjective) HasKeyResult(index int) bool {
	return c != nil && index >= 0 && index < len(c.KeyResults)
}
