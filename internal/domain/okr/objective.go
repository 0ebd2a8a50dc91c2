package okr

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MetricKind string

const (
	MetricAbsolute   MetricKind = "absolute"
	MetricPercentage MetricKind = "percentage"
	MetricCurrency   MetricKind = "currency"
	MetricCustom     MetricKind = "custom"
)

func (k MetricKind) Valid() bool {
	switch k {
	case MetricAbsolute, MetricPercentage, MetricCurrency, MetricCustom:
		return true
	default:
		return false
	}
}

type State string

const (
	StateDraft  State = "draft"
	StateActive State = "active"
	StateDone   State = "done"
)

// KeyResult is embedded as JSON in both Objective and CorporateObjective.
// Progress is derived from the metric values and is never taken from a caller.
type KeyResult struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	MetricKind  MetricKind `json:"metric_kind"`
	StartValue  float64    `json:"start_value"`
	TargetValue float64    `json:"target_value"`
	ActualValue float64    `json:"actual_value"`
	Unit        string     `json:"unit,omitempty"`
	Progress    int        `json:"progress"`

	// Only set on corporate key results.
	DelegatedTeamIDs []uuid.UUID `json:"delegated_team_ids,omitempty"`
}

// Recompute refreshes Progress from the metric values.
func (kr *KeyResult) Recompute() {
	kr.Progress = MetricProgress(kr.MetricKind, kr.StartValue, kr.TargetValue, kr.ActualValue)
}

func (kr KeyResult) IsDelegatedTo(teamID uuid.UUID) bool {
	for _, id := range kr.DelegatedTeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

type Objective struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"team_id"`
	CreatorID   uuid.UUID  `gorm:"type:uuid;not null" json:"creator_id"`
	Objective   string     `gorm:"column:objective;not null" json:"objective"`
	Description string     `gorm:"column:description" json:"description,omitempty"`
	Deadline    *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	Frozen      bool       `gorm:"column:frozen;not null;default:false" json:"frozen"`
	State       State      `gorm:"column:state;not null;default:'draft';index" json:"state"`

	KeyResults datatypes.JSONSlice[KeyResult] `gorm:"column:key_results;not null" json:"key_results"`
	Progress   int                            `gorm:"column:progress;not null;default:0" json:"progress"`

	ParentCorporateObjectiveID *uuid.UUID `gorm:"type:uuid;column:parent_corporate_objective_id;index:idx_okr_objective_parent" json:"parent_corporate_objective_id,omitempty"`
	ParentKeyResultIndex       *int       `gorm:"column:parent_key_result_index;index:idx_okr_objective_parent" json:"parent_key_result_index,omitempty"`
	LinkedBy                   *uuid.UUID `gorm:"type:uuid;column:linked_by" json:"linked_by,omitempty"`

	// Version is bumped on every aggregate write and checked compare-and-set.
	Version int `gorm:"column:version;not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Objective) TableName() string { return "okr_objective" }

func (o *Objective) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.KeyResults == nil {
		o.KeyResults = datatypes.JSONSlice[KeyResult]{}
	}
	return nil
}

// Link returns the parent link, ok=false when the objective is not linked.
func (o *Objective) Link() (ParentLink, bool) {
	if o == nil || o.ParentCorporateObjectiveID == nil || o.ParentKeyResultIndex == nil {
		return ParentLink{}, false
	}
	return ParentLink{CorporateObjectiveID: *o.ParentCorporateObjectiveID, KeyResultIndex: *o.ParentKeyResultIndex}, true
}

func (o *Objective) SetLink(link ParentLink) {
	id := link.CorporateObjectiveID
	idx := link.KeyResultIndex
	o.ParentCorporateObjectiveID = &id
	o.ParentKeyResultIndex = &idx
}

// Reaggregate recomputes overall progress and the lifecycle state that follows from it.
func (o *Objective) Reaggregate() {
	o.Progress = AggregateKeyResults(o.KeyResults)
	switch {
	case len(o.KeyResults) == 0:
		o.State = StateDraft
	case o.Progress == 100:
		o.State = StateDone
	default:
		o.State = StateActive
	}
}

func (o *Objective) KeyResultProgresses() []int {
	return keyResultProgresses(o.KeyResults)
}

// ParentLink addresses one key result of a corporate objective.
type ParentLink struct {
	CorporateObjectiveID uuid.UUID
	KeyResultIndex       int
}
