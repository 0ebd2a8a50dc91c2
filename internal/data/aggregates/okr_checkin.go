package aggregates

import (
	"context"
	"strings"

	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
)

// SubmitCheckIn applies a batch of actual-value updates. Rejections are
// evaluated in a fixed order and the first failing rule wins: request shape,
// missing objective, frozen, index, per key result regression, then the
// already-complete guard.
func (a *objectiveAggregate) SubmitCheckIn(ctx context.Context, in domainagg.SubmitCheckInInput) (*okr.CheckIn, error) {
	const op = "okr.objective.submit_check_in"
	var out *okr.CheckIn
	scope := newLockScope(a.e.deps.Locker)
	defer scope.Release()
	err := executeWrite(ctx, a.e.deps.Base, op, func(dbc dbctx.Context) error {
		if err := validateInput(op, in); err != nil {
			return err
		}
		obj, err := a.e.lockObjective(dbc, scope, op, in.ObjectiveID)
		if err != nil {
			return err
		}
		if obj.Frozen {
			return a.e.reject(op, domainagg.CodeFrozen, "objective is frozen", "objective_id", obj.ID)
		}

		seen := make(map[int]struct{}, len(in.Updates))
		for _, u := range in.Updates {
			if u.Index < 0 || u.Index >= len(obj.KeyResults) {
				return a.e.reject(op, domainagg.CodeInvalidIndex, "key result index out of range", "objective_id", obj.ID, "index", u.Index)
			}
			if _, dup := seen[u.Index]; dup {
				return a.e.reject(op, domainagg.CodeInvalidIndex, "key result index repeated in batch", "objective_id", obj.ID, "index", u.Index)
			}
			seen[u.Index] = struct{}{}
		}

		deltas := make([]okr.CheckInDelta, 0, len(in.Updates))
		allComplete := true
		for _, u := range in.Updates {
			kr := obj.KeyResults[u.Index]
			candidate := okr.MetricProgress(kr.MetricKind, kr.StartValue, kr.TargetValue, u.NewActualValue)
			if kr.Progress == 100 && candidate < 100 {
				return a.e.reject(op, domainagg.CodeCannotRegress, "check-in would lower a completed key result",
					"objective_id", obj.ID, "index", u.Index, "candidate_progress", candidate)
			}
			if candidate < 100 {
				allComplete = false
			}
			deltas = append(deltas, okr.CheckInDelta{
				Index:            u.Index,
				PreviousActual:   kr.ActualValue,
				NewActual:        u.NewActualValue,
				PreviousProgress: kr.Progress,
				NewProgress:      candidate,
			})
		}
		if obj.Progress == 100 && !allComplete {
			return a.e.reject(op, domainagg.CodeAlreadyComplete, "objective is already complete", "objective_id", obj.ID)
		}

		beforeProgress, beforeKRs := obj.Progress, obj.KeyResultProgresses()
		for _, d := range deltas {
			obj.KeyResults[d.Index].ActualValue = d.NewActual
			obj.KeyResults[d.Index].Progress = d.NewProgress
		}
		obj.Reaggregate()

		now := a.e.now()
		checkIn := &okr.CheckIn{
			ObjectiveID: obj.ID,
			AuthorID:    in.AuthorID,
			Comment:     normalizeComment(in.Comment),
			Deltas:      deltas,
			CreatedAt:   now,
		}
		if _, err := a.e.deps.CheckIns.Create(dbc, checkIn); err != nil {
			return err
		}
		if err := a.e.writeObjective(dbc, obj, now, map[string]any{
			"key_results": obj.KeyResults,
			"progress":    obj.Progress,
			"state":       obj.State,
		}); err != nil {
			return err
		}

		ev := a.e.event(now)
		ev.CheckIn = true
		ev.ContributorID = in.AuthorID
		if err := a.e.cascadeObjective(dbc, op, obj, withHistory(ev)); err != nil {
			return err
		}

		a.e.deps.Base.Log.Debug("check-in applied",
			"objective_id", obj.ID,
			"check_in_id", checkIn.ID,
			"updates", len(deltas),
			"progress_before", beforeProgress,
			"progress_after", obj.Progress,
			"key_results_moved", snapshotChanged(beforeProgress, beforeKRs, obj.Progress, obj.KeyResultProgresses()),
		)
		out = checkIn
		return nil
	})
	return out, err
}

func withHistory(ev okr.ProjectionEvent) okr.ProjectionEvent {
	ev.AppendHistory = true
	return ev
}

func normalizeComment(c *string) *string {
	if c == nil {
		return nil
	}
	s := strings.TrimSpace(*c)
	if s == "" {
		return nil
	}
	return &s
}
