package aggregates_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/okrbridge-backend/internal/data/aggregates"
	repotestutil "github.com/yungbote/okrbridge-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/pointers"
)

func TestCreateObjectiveDerivesProgressAndStats(t *testing.T) {
	f := newOKRFixture(t)
	deadline := f.clock.Now().Add(30 * 24 * time.Hour)

	res, err := f.objectives.CreateObjective(f.ctx, domainagg.CreateObjectiveInput{
		TeamID:    uuid.New(),
		CreatorID: uuid.New(),
		Objective: "  Grow activation  ",
		Deadline:  &deadline,
		KeyResults: []domainagg.KeyResultInput{
			{Title: "signups", MetricKind: okr.MetricAbsolute, StartValue: 0, TargetValue: 10, ActualValue: pointers.Float64(5)},
			{Title: "churn", MetricKind: okr.MetricPercentage, StartValue: 10, TargetValue: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Progress)

	obj := f.objective(res.ID)
	assert.Equal(t, "Grow activation", obj.Objective)
	assert.Equal(t, okr.StateActive, obj.State)
	assert.Equal(t, []int{50, 0}, obj.KeyResultProgresses())
	assert.Equal(t, 10.0, obj.KeyResults[1].ActualValue, "actual defaults to start")

	stats := f.objectiveStats(res.ID)
	require.NotNil(t, stats)
	assert.Equal(t, okr.StatusOnTrack, stats.Status)
	assert.Len(t, stats.History, 1)
	assert.Empty(t, stats.Contributors)
}

func TestCreateObjectiveValidation(t *testing.T) {
	f := newOKRFixture(t)
	base := func() domainagg.CreateObjectiveInput {
		return domainagg.CreateObjectiveInput{TeamID: uuid.New(), CreatorID: uuid.New(), Objective: "ship"}
	}

	in := base()
	in.Objective = "   "
	_, err := f.objectives.CreateObjective(f.ctx, in)
	requireCode(t, err, domainagg.CodeValidation)

	in = base()
	past := f.clock.Now().Add(-time.Hour)
	in.Deadline = &past
	_, err = f.objectives.CreateObjective(f.ctx, in)
	requireCode(t, err, domainagg.CodeValidation)

	in = base()
	in.KeyResults = []domainagg.KeyResultInput{{Title: "kr", MetricKind: "velocity", TargetValue: 1}}
	_, err = f.objectives.CreateObjective(f.ctx, in)
	requireCode(t, err, domainagg.CodeInvalidMetric)

	in = base()
	in.KeyResults = []domainagg.KeyResultInput{{Title: "kr", MetricKind: okr.MetricCustom, TargetValue: math.Inf(1)}}
	_, err = f.objectives.CreateObjective(f.ctx, in)
	requireCode(t, err, domainagg.CodeInvalidMetric)

	res, err := f.objectives.CreateObjective(f.ctx, base())
	require.NoError(t, err)
	assert.Equal(t, okr.StateDraft, f.objective(res.ID).State)
}

func TestAddKeyResultCascadesToParent(t *testing.T) {
	f := newOKRFixture(t)
	team := uuid.New()
	corp := f.delegatedCorporate(team)
	link := okr.ParentLink{CorporateObjectiveID: corp.ID, KeyResultIndex: 0}
	obj := repotestutil.SeedLinkedObjective(t, f.ctx, f.db, team, link, repotestutil.KR(okr.MetricAbsolute, 0, 10, 10))
	_, err := f.corporate.RecomputeDelegatedKeyResult(f.ctx, corp.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 100, f.corporateObjective(corp.ID).Progress)

	got, err := f.objectives.AddKeyResult(f.ctx, domainagg.AddKeyResultInput{
		ObjectiveID: obj.ID,
		Title:       "new",
		MetricKind:  okr.MetricAbsolute,
		StartValue:  0,
		TargetValue: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress)
	assert.Equal(t, 50, f.corporateObjective(corp.ID).Progress)
	assert.Len(t, f.objectiveStats(obj.ID).History, 1)
}

func TestUpdateKeyResult(t *testing.T) {
	f := newOKRFixture(t)
	obj := repotestutil.SeedObjective(t, f.ctx, f.db, uuid.New(),
		repotestutil.KR(okr.MetricAbsolute, 0, 10, 10),
		repotestutil.KR(okr.MetricAbsolute, 0, 10, 4),
	)

	_, err := f.objectives.UpdateKeyResult(f.ctx, domainagg.UpdateKeyResultInput{
		ObjectiveID: obj.ID, Index: 0, TargetValue: pointers.Float64(20),
	})
	requireCode(t, err, domainagg.CodeCannotRegress)

	_, err = f.objectives.UpdateKeyResult(f.ctx, domainagg.UpdateKeyResultInput{ObjectiveID: obj.ID, Index: 2})
	requireCode(t, err, domainagg.CodeInvalidIndex)

	title := "  renamed  "
	got, err := f.objectives.UpdateKeyResult(f.ctx, domainagg.UpdateKeyResultInput{
		ObjectiveID: obj.ID, Index: 1, Title: &title, TargetValue: pointers.Float64(8),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.KeyResults[1].Title)
	assert.Equal(t, 50, got.KeyResults[1].Progress)
	assert.Equal(t, 75, got.Progress)
	assert.Equal(t, obj.Version+1, f.objective(obj.ID).Version)
}

func TestLinkRollsUpTwoTeamsToFifty(t *testing.T) {
	f := newOKRFixture(t)
	teamA, teamB := uuid.New(), uuid.New()
	corp := f.delegatedCorporate(teamA, teamB)
	objA := repotestutil.SeedObjective(t, f.ctx, f.db, teamA, repotestutil.KR(okr.MetricAbsolute, 0, 10, 10))
	objB := repotestutil.SeedObjective(t, f.ctx, f.db, teamB, repotestutil.KR(okr.MetricAbsolute, 0, 10, 0))
	require.Equal(t, 100, objA.Progress)
	require.Equal(t, 0, objB.Progress)

	caller := uuid.New()
	for _, id := range []uuid.UUID{objA.ID, objB.ID} {
		_, err := f.objectives.Link(f.ctx, domainagg.LinkInput{
			ObjectiveID: id, CorporateObjectiveID: corp.ID, KeyResultIndex: 0, CallerID: caller,
		})
		require.NoError(t, err)
	}

	got := f.corporateObjective(corp.ID)
	assert.Equal(t, 50, got.KeyResults[0].Progress)
	assert.Equal(t, 50, got.Progress)

	linkedA := f.objective(objA.ID)
	l, ok := linkedA.Link()
	require.True(t, ok)
	assert.Equal(t, okr.ParentLink{CorporateObjectiveID: corp.ID, KeyResultIndex: 0}, l)
	require.NotNil(t, linkedA.LinkedBy)
	assert.Equal(t, caller, *linkedA.LinkedBy)

	corpStats := f.corporateStats(corp.ID)
	assert.Equal(t, 50, corpStats.Progress)
	require.NotNil(t, corpStats.CompletedAt, "first link briefly completed the corporate objective")
	assert.Equal(t, okr.StatusOnTrack, corpStats.Status)
	assert.Empty(t, corpStats.Contributors)

	statsB := f.objectiveStats(objB.ID)
	require.NotNil(t, statsB.ParentCorporateObjectiveID)
	assert.Equal(t, corp.ID, *statsB.ParentCorporateObjectiveID)
	assert.Empty(t, statsB.History)
}

func TestLinkInheritsCorporateFrozen(t *testing.T) {
	f := newOKRFixture(t)
	team := uuid.New()
	corp := f.delegatedCorporate(team)
	_, err := f.corporate.SetCorporateFrozen(f.ctx, corp.ID, true)
	require.NoError(t, err)
	obj := repotestutil.SeedObjective(t, f.ctx, f.db, team, repotestutil.KR(okr.MetricAbsolute, 0, 10, 3))

	got, err := f.objectives.Link(f.ctx, domainagg.LinkInput{
		ObjectiveID: obj.ID, CorporateObjectiveID: corp.ID, KeyResultIndex: 0, CallerID: uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, got.Frozen)
	assert.True(t, f.objective(obj.ID).Frozen)
	assert.True(t, f.objectiveStats(obj.ID).Frozen)

	_, err = f.objectives.SetObjectiveFrozen(f.ctx, obj.ID, false)
	requireCode(t, err, domainagg.CodeFrozen)
}

func TestLinkErrorOrder(t *testing.T) {
	f := newOKRFixture(t)
	team := uuid.New()
	corp := f.delegatedCorporate(uuid.New())
	obj := repotestutil.SeedObjective(t, f.ctx, f.db, team, repotestutil.KR(okr.MetricAbsolute, 0, 10, 3))
	link := func(objectiveID, corporateID uuid.UUID, idx int) error {
		_, err := f.objectives.Link(f.ctx, domainagg.LinkInput{
			ObjectiveID: objectiveID, CorporateObjectiveID: corporateID, KeyResultIndex: idx, CallerID: uuid.New(),
		})
		return err
	}

	err := link(uuid.New(), uuid.New(), 5)
	requireCode(t, err, domainagg.CodeNotFound)
	assert.Contains(t, err.Error(), "objective not found")

	err = link(obj.ID, uuid.New(), 5)
	requireCode(t, err, domainagg.CodeNotFound)
	assert.Contains(t, err.Error(), "corporate objective not found")

	requireCode(t, link(obj.ID, corp.ID, 5), domainagg.CodeInvalidIndex)
	requireCode(t, link(obj.ID, corp.ID, 0), domainagg.CodePreconditionFailed)

	_, ok := f.objective(obj.ID).Link()
	assert.False(t, ok)
}

func TestRelinkRecomputesPreviousKeyResult(t *testing.T) {
	f := newOKRFixture(t, func(d *aggregates.OKRAggregateDeps) {
		d.Policy.ResetEmptyRollup = true
	})
	team := uuid.New()
	first := f.delegatedCorporate(team)
	second := f.delegatedCorporate(team)
	obj := repotestutil.SeedObjective(t, f.ctx, f.db, team, repotestutil.KR(okr.MetricAbsolute, 0, 10, 6))

	in := domainagg.LinkInput{ObjectiveID: obj.ID, CorporateObjectiveID: first.ID, KeyResultIndex: 0, CallerID: uuid.New()}
	_, err := f.objectives.Link(f.ctx, in)
	require.NoError(t, err)
	require.Equal(t, 60, f.corporateObjective(first.ID).Progress)

	in.CorporateObjectiveID = second.ID
	_, err = f.objectives.Link(f.ctx, in)
	require.NoError(t, err)

	assert.Equal(t, 0, f.corporateObjective(first.ID).KeyResults[0].Progress)
	assert.Equal(t, 60, f.corporateObjective(second.ID).KeyResults[0].Progress)
}

func TestRelinkRetainsLastValueByDefault(t *testing.T) {
	f := newOKRFixture(t)
	team := uuid.New()
	first := f.delegatedCorporate(team)
	second := f.delegatedCorporate(team)
	obj := repotestutil.SeedObjective(t, f.ctx, f.db, team, repotestutil.KR(okr.MetricAbsolute, 0, 10, 6))

	in := domainagg.LinkInput{ObjectiveID: obj.ID, CorporateObjectiveID: first.ID, KeyResultIndex: 0, CallerID: uuid.New()}
	_, err := f.objectives.Link(f.ctx, in)
	require.NoError(t, err)
	in.CorporateObjectiveID = second.ID
	_, err = f.objectives.Link(f.ctx, in)
	require.NoError(t, err)

	assert.Equal(t, 60, f.corporateObjective(first.ID).KeyResults[0].Progress)
}

func TestRelinkRetainsLastValueWithZeroPolicy(t *testing.T) {
	f := newOKRFixture(t, func(d *aggregates.OKRAggregateDeps) {
		d.Policy = aggregates.OKRPolicy{}
	})
	team := uuid.New()
	first := f.delegatedCorporate(team)
	second := f.delegatedCorporate(team)
	obj := repotestutil.SeedObjective(t, f.ctx, f.db, team, repotestutil.KR(okr.MetricAbsolute, 0, 10, 10))

	in := domainagg.LinkInput{ObjectiveID: obj.ID, CorporateObjectiveID: first.ID, KeyResultIndex: 0, CallerID: uuid.New()}
	_, err := f.objectives.Link(f.ctx, in)
	require.NoError(t, err)
	require.Equal(t, 100, f.corporateObjective(first.ID).KeyResults[0].Progress)

	in.CorporateObjectiveID = second.ID
	_, err = f.objectives.Link(f.ctx, in)
	require.NoError(t, err)

	assert.Equal(t, 100, f.corporateObjective(first.ID).KeyResults[0].Progress)
	assert.Equal(t, 100, f.corporateObjective(second.ID).KeyResults[0].Progress)
}

func TestSetObjectiveFrozenIsMirrorOnly(t *testing.T) {
	f := newOKRFixture(t)
	team := uuid.New()
	corp := f.delegatedCorporate(team)
	link := okr.ParentLink{CorporateObjectiveID: corp.ID, KeyResultIndex: 0}
	obj := repotestutil.SeedLinkedObjective(t, f.ctx, f.db, team, link, repotestutil.KR(okr.MetricAbsolute, 0, 10, 3))

	got, err := f.objectives.SetObjectiveFrozen(f.ctx, obj.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Frozen)
	assert.False(t, f.corporateObjective(corp.ID).Frozen)

	stats := f.objectiveStats(obj.ID)
	assert.True(t, stats.Frozen)
	assert.Empty(t, stats.History)

	got, err = f.objectives.SetObjectiveFrozen(f.ctx, obj.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Frozen)
}

func TestObjectiveMutationWithDanglingLinkAborts(t *testing.T) {
	f := newOKRFixture(t)
	link := okr.ParentLink{CorporateObjectiveID: uuid.New(), KeyResultIndex: 0}
	obj := repotestutil.SeedLinkedObjective(t, f.ctx, f.db, uuid.New(), link, repotestutil.KR(okr.MetricAbsolute, 0, 10, 3))

	_, err := f.objectives.SubmitCheckIn(f.ctx, checkIn(obj.ID, uuid.New(), update(0, 5)))
	requireCode(t, err, domainagg.CodeConsistencyViolation)
	assert.Equal(t, obj.Version, f.objective(obj.ID).Version)
	assert.EqualValues(t, 0, f.checkInCount(obj.ID))
}

func TestStatsReaderReclassifiesAgainstNow(t *testing.T) {
	f := newOKRFixture(t)
	deadline := f.clock.Now().Add(10 * 24 * time.Hour)
	res, err := f.objectives.CreateObjective(f.ctx, domainagg.CreateObjectiveInput{
		TeamID:    uuid.New(),
		CreatorID: uuid.New(),
		Objective: "ship",
		Deadline:  &deadline,
		KeyResults: []domainagg.KeyResultInput{
			{Title: "kr", MetricKind: okr.MetricAbsolute, TargetValue: 10, ActualValue: pointers.Float64(1)},
		},
	})
	require.NoError(t, err)

	stats, err := f.stats.ObjectiveStats(f.ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, okr.StatusOnTrack, stats.Status)

	f.clock.Advance(6 * 24 * time.Hour)
	stats, err = f.stats.ObjectiveStats(f.ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, okr.StatusAtRisk, stats.Status)

	_, err = f.stats.ObjectiveStats(f.ctx, uuid.New())
	requireCode(t, err, domainagg.CodeNotFound)
	_, err = f.stats.ObjectiveStats(f.ctx, uuid.Nil)
	requireCode(t, err, domainagg.CodeValidation)
}
