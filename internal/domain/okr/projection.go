package okr

import (
	"time"

	"github.com/google/uuid"
)

// ProjectionEvent describes the mutation a derived-stats record is being brought current for.
type ProjectionEvent struct {
	At time.Time
	// AppendHistory records a progress snapshot; mirror-only syncs leave history alone.
	AppendHistory bool
	// CheckIn bumps the check-in counters.
	CheckIn bool
	// ContributorID is added to the contributor set when non-nil.
	ContributorID uuid.UUID
	AtRiskWindow  time.Duration
}

// ProjectObjective mirrors obj into stats. It never reads anything but its arguments.
func ProjectObjective(stats *ObjectiveStats, obj *Objective, ev ProjectionEvent) {
	if stats == nil || obj == nil {
		return
	}
	stats.ObjectiveID = obj.ID
	stats.ParentCorporateObjectiveID = copyUUIDPtr(obj.ParentCorporateObjectiveID)
	stats.ParentKeyResultIndex = copyIntPtr(obj.ParentKeyResultIndex)
	stats.ProgressTrack.project(obj.Progress, obj.KeyResultProgresses(), obj.Frozen, obj.Deadline, ev)
	stats.UpdatedAt = ev.At
}

func ProjectCorporate(stats *CorporateObjectiveStats, corp *CorporateObjective, ev ProjectionEvent) {
	if stats == nil || corp == nil {
		return
	}
	stats.CorporateObjectiveID = corp.ID
	stats.ProgressTrack.project(corp.Progress, corp.KeyResultProgresses(), corp.Frozen, corp.Deadline, ev)
	stats.UpdatedAt = ev.At
}

func (t *ProgressTrack) project(progress int, krs []int, frozen bool, deadline *time.Time, ev ProjectionEvent) {
	t.ensureSlices()
	t.Progress = progress
	t.Frozen = frozen

	t.Status = Classify(progress, deadline, ev.At, ev.AtRiskWindow)
	if t.Status == StatusCompleted && t.CompletedAt == nil {
		at := ev.At
		t.CompletedAt = &at
	}

	if ev.AppendHistory {
		t.History = append(t.History, ProgressSnapshot{
			At:         ev.At,
			Progress:   progress,
			KeyResults: append([]int(nil), krs...),
		})
	}
	if ev.CheckIn {
		t.CheckInCount++
		at := ev.At
		t.LastCheckInAt = &at
	}
	if ev.ContributorID != uuid.Nil && !containsUUID(t.Contributors, ev.ContributorID) {
		t.Contributors = append(t.Contributors, ev.ContributorID)
	}
	t.CheckInFrequencyDays = SnapshotFrequencyDays(t.History)
}

// SnapshotFrequencyDays is the mean number of days between first and last snapshot,
// or 0 with fewer than two snapshots.
func SnapshotFrequencyDays(history []ProgressSnapshot) float64 {
	if len(history) < 2 {
		return 0
	}
	first := history[0].At
	last := history[len(history)-1].At
	span := last.Sub(first).Hours() / 24
	return span / float64(len(history)-1)
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func copyUUIDPtr(v *uuid.UUID) *uuid.UUID {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
