package okr

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	near := now.Add(3 * 24 * time.Hour)
	edge := now.Add(5 * 24 * time.Hour)
	far := now.Add(30 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	assert.Equal(t, StatusCompleted, Classify(100, nil, now, 0))
	assert.Equal(t, StatusOnTrack, Classify(75, &near, now, 0))
	assert.Equal(t, StatusOnTrack, Classify(60, &near, now, 0), "50-75 band defaults to on_track")
	assert.Equal(t, StatusOnTrack, Classify(10, nil, now, 0))
	assert.Equal(t, StatusOnTrack, Classify(10, &far, now, 0))
	assert.Equal(t, StatusAtRisk, Classify(10, &near, now, 0))
	assert.Equal(t, StatusAtRisk, Classify(49, &edge, now, 0))
	assert.Equal(t, StatusAtRisk, Classify(0, &past, now, 0))
	assert.Equal(t, StatusOnTrack, Classify(10, &near, now, 24*time.Hour))
}

func TestProjectObjectiveCompletionRecordedOnce(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	obj := &Objective{
		ID:         uuid.New(),
		KeyResults: []KeyResult{{MetricKind: MetricAbsolute, TargetValue: 100, ActualValue: 50, Progress: 50}},
	}
	obj.Reaggregate()

	stats := &ObjectiveStats{}
	ProjectObjective(stats, obj, ProjectionEvent{At: t0, AppendHistory: true})
	require.Equal(t, StatusOnTrack, stats.Status)
	require.Nil(t, stats.CompletedAt)

	obj.KeyResults[0].ActualValue = 100
	obj.KeyResults[0].Recompute()
	obj.Reaggregate()
	t1 := t0.Add(48 * time.Hour)
	ProjectObjective(stats, obj, ProjectionEvent{At: t1, AppendHistory: true, CheckIn: true})
	require.Equal(t, StatusCompleted, stats.Status)
	require.NotNil(t, stats.CompletedAt)
	require.True(t, stats.CompletedAt.Equal(t1))

	t2 := t1.Add(48 * time.Hour)
	ProjectObjective(stats, obj, ProjectionEvent{At: t2, AppendHistory: true, CheckIn: true})
	require.True(t, stats.CompletedAt.Equal(t1), "completion timestamp must not move")
	assert.Equal(t, 2, stats.CheckInCount)
	assert.True(t, stats.LastCheckInAt.Equal(t2))
	assert.Len(t, stats.History, 3)
	assert.InDelta(t, 2.0, stats.CheckInFrequencyDays, 1e-9)
}

func TestProjectObjectiveMirrorOnly(t *testing.T) {
	corpID := uuid.New()
	idx := 2
	obj := &Objective{ID: uuid.New(), Frozen: true, ParentCorporateObjectiveID: &corpID, ParentKeyResultIndex: &idx}
	stats := &ObjectiveStats{}
	ProjectObjective(stats, obj, ProjectionEvent{At: time.Now().UTC()})

	assert.True(t, stats.Frozen)
	assert.Empty(t, stats.History)
	assert.Equal(t, 0, stats.CheckInCount)
	require.NotNil(t, stats.ParentCorporateObjectiveID)
	assert.Equal(t, corpID, *stats.ParentCorporateObjectiveID)
	assert.Equal(t, 2, *stats.ParentKeyResultIndex)

	// the mirror holds its own copy of the link
	idx = 5
	assert.Equal(t, 2, *stats.ParentKeyResultIndex)
}

func TestProjectContributorsAreASet(t *testing.T) {
	author := uuid.New()
	corp := &CorporateObjective{ID: uuid.New()}
	stats := &CorporateObjectiveStats{}
	at := time.Now().UTC()
	ProjectCorporate(stats, corp, ProjectionEvent{At: at, ContributorID: author})
	ProjectCorporate(stats, corp, ProjectionEvent{At: at, ContributorID: author})
	ProjectCorporate(stats, corp, ProjectionEvent{At: at, ContributorID: uuid.New()})
	assert.Len(t, stats.Contributors, 2)
}

func TestSnapshotFrequencyDays(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.0, SnapshotFrequencyDays(nil))
	assert.Equal(t, 0.0, SnapshotFrequencyDays([]ProgressSnapshot{{At: t0}}))
	hist := []ProgressSnapshot{{At: t0}, {At: t0.Add(24 * time.Hour)}, {At: t0.Add(72 * time.Hour)}}
	assert.InDelta(t, 1.5, SnapshotFrequencyDays(hist), 1e-9)
}
