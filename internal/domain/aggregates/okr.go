package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
)

var ObjectiveAggregateContract = Contract{
	Name:             "OKR.ObjectiveAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns team objective key-result writes, check-in audit records, parent links, and the " +
		"rollup/stats cascade each of them triggers, in one aggregate write boundary.",
}

var CorporateObjectiveAggregateContract = Contract{
	Name:             "OKR.CorporateObjectiveAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns corporate objective freeze cascade, team delegation, and delegated key-result rollup.",
}

// ObjectiveAggregate owns team objective invariants.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeFrozen, CodeInvalidIndex, CodeInvalidMetric, CodeCannotRegress,
// CodeAlreadyComplete, CodePreconditionFailed, CodeConsistencyViolation, CodeConflict, CodeRetryable, CodeInternal.
type ObjectiveAggregate interface {
	Aggregate

	// CreateObjective persists a new team objective with derived progress and its initial stats.
	CreateObjective(ctx context.Context, in CreateObjectiveInput) (CreateObjectiveResult, error)

	// AddKeyResult appends a key result (actual = start) and cascades the new progress.
	AddKeyResult(ctx context.Context, in AddKeyResultInput) (*okr.Objective, error)

	// UpdateKeyResult edits a key result's definition and cascades the recomputed progress.
	UpdateKeyResult(ctx context.Context, in UpdateKeyResultInput) (*okr.Objective, error)

	// SubmitCheckIn validates and applies a batch of actual-value updates, writing one audit record.
	SubmitCheckIn(ctx context.Context, in SubmitCheckInInput) (*okr.CheckIn, error)

	// Link points the objective at a corporate key result; the objective inherits the corporate frozen flag.
	Link(ctx context.Context, in LinkInput) (*okr.Objective, error)

	// SetObjectiveFrozen freezes or unfreezes a team objective directly. It never affects the corporate side.
	SetObjectiveFrozen(ctx context.Context, objectiveID uuid.UUID, frozen bool) (*okr.Objective, error)
}

// CorporateObjectiveAggregate owns corporate objective invariants.
type CorporateObjectiveAggregate interface {
	Aggregate

	CreateCorporateObjective(ctx context.Context, in CreateCorporateObjectiveInput) (CreateObjectiveResult, error)

	// SetCorporateFrozen sets the frozen flag on the corporate objective and every objective linked to it.
	SetCorporateFrozen(ctx context.Context, corporateObjectiveID uuid.UUID, frozen bool) (*okr.CorporateObjective, error)

	// AssignTeams replaces the delegated team list of one corporate key result.
	AssignTeams(ctx context.Context, in AssignTeamsInput) ([]uuid.UUID, error)

	// RecomputeDelegatedKeyResult rolls the linked objectives' progress into one corporate key result.
	RecomputeDelegatedKeyResult(ctx context.Context, corporateObjectiveID uuid.UUID, keyResultIndex int) (*okr.CorporateObjective, error)
}

// OKRStatsReader exposes the derived-stats projections.
type OKRStatsReader interface {
	ObjectiveStats(ctx context.Context, objectiveID uuid.UUID) (*okr.ObjectiveStats, error)
	CorporateObjectiveStats(ctx context.Context, corporateObjectiveID uuid.UUID) (*okr.CorporateObjectiveStats, error)
}

type KeyResultInput struct {
	Title       string         `validate:"required"`
	Description string
	MetricKind  okr.MetricKind `validate:"metric_kind"`
	StartValue  float64        `validate:"finite"`
	TargetValue float64        `validate:"finite"`
	// ActualValue defaults to StartValue.
	ActualValue      *float64    `validate:"omitempty,finite"`
	Unit             string
	DelegatedTeamIDs []uuid.UUID
}

type CreateObjectiveInput struct {
	TeamID      uuid.UUID        `validate:"required"`
	CreatorID   uuid.UUID        `validate:"required"`
	Objective   string           `validate:"required"`
	Description string
	Deadline    *time.Time
	KeyResults  []KeyResultInput `validate:"dive"`
}

type CreateCorporateObjectiveInput struct {
	CompanyID   uuid.UUID        `validate:"required"`
	CreatorID   uuid.UUID        `validate:"required"`
	Objective   string           `validate:"required"`
	Description string
	Deadline    *time.Time
	KeyResults  []KeyResultInput `validate:"dive"`
}

type CreateObjectiveResult struct {
	ID        uuid.UUID
	Progress  int
	CreatedAt time.Time
}

type AddKeyResultInput struct {
	ObjectiveID uuid.UUID      `validate:"required"`
	Title       string         `validate:"required"`
	Description string
	MetricKind  okr.MetricKind `validate:"metric_kind"`
	StartValue  float64        `validate:"finite"`
	TargetValue float64        `validate:"finite"`
	Unit        string
}

// UpdateKeyResultInput patches the non-nil fields of one key result.
type UpdateKeyResultInput struct {
	ObjectiveID uuid.UUID       `validate:"required"`
	Index       int
	Title       *string         `validate:"omitempty,min=1"`
	Description *string
	MetricKind  *okr.MetricKind `validate:"omitempty,metric_kind"`
	StartValue  *float64        `validate:"omitempty,finite"`
	TargetValue *float64        `validate:"omitempty,finite"`
	Unit        *string
}

type KeyResultUpdate struct {
	Index          int
	NewActualValue float64 `validate:"finite"`
}

type SubmitCheckInInput struct {
	ObjectiveID uuid.UUID         `validate:"required"`
	AuthorID    uuid.UUID         `validate:"required"`
	Updates     []KeyResultUpdate `validate:"required,min=1,dive"`
	Comment     *string
}

type LinkInput struct {
	ObjectiveID          uuid.UUID `validate:"required"`
	CorporateObjectiveID uuid.UUID `validate:"required"`
	KeyResultIndex       int
	CallerID             uuid.UUID `validate:"required"`
}

type AssignTeamsInput struct {
	CorporateObjectiveID uuid.UUID   `validate:"required"`
	KeyResultIndex       int
	TeamIDs              []uuid.UUID
}
