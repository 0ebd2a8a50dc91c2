package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/okrbridge-backend/internal/pkg/pointers"
)

type objectiveAggregate struct {
	e *okrEngine
}

func NewObjectiveAggregate(deps OKRAggregateDeps) domainagg.ObjectiveAggregate {
	deps = deps.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "OKR.Objective")
	return &objectiveAggregate{e: newOKREngine(deps)}
}

func (a *objectiveAggregate) Contract() domainagg.Contract {
	return domainagg.ObjectiveAggregateContract
}

func (a *objectiveAggregate) CreateObjective(ctx context.Context, in domainagg.CreateObjectiveInput) (domainagg.CreateObjectiveResult, error) {
	const op = "okr.objective.create"
	var out domainagg.CreateObjectiveResult
	err := executeWrite(ctx, a.e.deps.Base, op, func(dbc dbctx.Context) error {
		if err := validateInput(op, in); err != nil {
			return err
		}
		text := strings.TrimSpace(in.Objective)
		if text == "" {
			return domainagg.NewError(domainagg.CodeValidation, op, "objective text is required", nil)
		}
		now := a.e.now()
		deadline, err := deadlineAfter(op, in.Deadline, now)
		if err != nil {
			return err
		}

		obj := &okr.Objective{
			TeamID:      in.TeamID,
			CreatorID:   in.CreatorID,
			Objective:   text,
			Description: strings.TrimSpace(in.Description),
			Deadline:    deadline,
			KeyResults:  buildKeyResults(in.KeyResults, false),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		obj.Reaggregate()
		if _, err := a.e.deps.Objectives.Create(dbc, []*okr.Objective{obj}); err != nil {
			return err
		}

		ev := a.e.event(now)
		ev.AppendHistory = true
		if err := a.e.projectObjective(dbc, obj, ev); err != nil {
			return err
		}
		out = domainagg.CreateObjectiveResult{ID: obj.ID, Progress: obj.Progress, CreatedAt: obj.CreatedAt}
		return nil
	})
	return out, err
}

func (a *objectiveAggregate) AddKeyResult(ctx context.Context, in domainagg.AddKeyResultInput) (*okr.Objective, error) {
	const op = "okr.objective.add_key_result"
	var out *okr.Objective
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

		beforeProgress, beforeKRs := obj.Progress, obj.KeyResultProgresses()
		kr := okr.KeyResult{
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			MetricKind:  in.MetricKind,
			StartValue:  in.StartValue,
			TargetValue: in.TargetValue,
			ActualValue: in.StartValue,
			Unit:        strings.TrimSpace(in.Unit),
		}
		kr.Recompute()
		obj.KeyResults = append(obj.KeyResults, kr)
		obj.Reaggregate()

		now := a.e.now()
		if err := a.e.writeObjective(dbc, obj, now, map[string]any{
			"key_results": obj.KeyResults,
			"progress":    obj.Progress,
			"state":       obj.State,
		}); err != nil {
			return err
		}

		ev := a.e.event(now)
		ev.AppendHistory = snapshotChanged(beforeProgress, beforeKRs, obj.Progress, obj.KeyResultProgresses())
		if err := a.e.cascadeObjective(dbc, op, obj, ev); err != nil {
			return err
		}
		out = obj
		return nil
	})
	return out, err
}

func (a *objectiveAggregate) UpdateKeyResult(ctx context.Context, in domainagg.UpdateKeyResultInput) (*okr.Objective, error) {
	const op = "okr.objective.update_key_result"
	var out *okr.Objective
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
		if in.Index < 0 || in.Index >= len(obj.KeyResults) {
			return a.e.reject(op, domainagg.CodeInvalidIndex, "key result index out of range", "objective_id", obj.ID, "index", in.Index)
		}

		beforeProgress, beforeKRs := obj.Progress, obj.KeyResultProgresses()
		kr := obj.KeyResults[in.Index]
		wasComplete := kr.Progress == 100
		if in.Title != nil {
			kr.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			kr.Description = strings.TrimSpace(*in.Description)
		}
		if in.Unit != nil {
			kr.Unit = strings.TrimSpace(*in.Unit)
		}
		if in.MetricKind != nil {
			kr.MetricKind = *in.MetricKind
		}
		if in.StartValue != nil {
			kr.StartValue = *in.StartValue
		}
		if in.TargetValue != nil {
			kr.TargetValue = *in.TargetValue
		}
		kr.Recompute()
		if wasComplete && kr.Progress < 100 {
			return a.e.reject(op, domainagg.CodeCannotRegress, "edit would lower a completed key result",
				"objective_id", obj.ID, "index", in.Index, "candidate_progress", kr.Progress)
		}
		obj.KeyResults[in.Index] = kr
		obj.Reaggregate()

		now := a.e.now()
		if err := a.e.writeObjective(dbc, obj, now, map[string]any{
			"key_results": obj.KeyResults,
			"progress":    obj.Progress,
			"state":       obj.State,
		}); err != nil {
			return err
		}

		ev := a.e.event(now)
		ev.AppendHistory = snapshotChanged(beforeProgress, beforeKRs, obj.Progress, obj.KeyResultProgresses())
		if err := a.e.cascadeObjective(dbc, op, obj, ev); err != nil {
			return err
		}
		out = obj
		return nil
	})
	return out, err
}

func (a *objectiveAggregate) Link(ctx context.Context, in domainagg.LinkInput) (*okr.Objective, error) {
	const op = "okr.objective.link"
	var out *okr.Objective
	scope := newLockScope(a.e.deps.Locker)
	defer scope.Release()
	err := executeWrite(ctx, a.e.deps.Base, op, func(dbc dbctx.Context) error {
		if err := validateInput(op, in); err != nil {
			return err
		}
		obj, err := a.e.lockObjective(dbc, scope, op, in.ObjectiveID, in.CorporateObjectiveID)
		if err != nil {
			return err
		}
		corp, err := a.e.deps.Corporate.LockByID(dbc, in.CorporateObjectiveID)
		if err != nil {
			return err
		}
		if corp == nil {
			return a.e.reject(op, domainagg.CodeNotFound, "corporate objective not found", "corporate_objective_id", in.CorporateObjectiveID)
		}
		if !corp.HasKeyResult(in.KeyResultIndex) {
			return a.e.reject(op, domainagg.CodeInvalidIndex, "corporate key result index out of range",
				"corporate_objective_id", corp.ID, "index", in.KeyResultIndex)
		}
		if !corp.KeyResults[in.KeyResultIndex].IsDelegatedTo(obj.TeamID) {
			return a.e.reject(op, domainagg.CodePreconditionFailed, "objective team is not delegated on this key result",
				"corporate_objective_id", corp.ID, "index", in.KeyResultIndex, "team_id", obj.TeamID)
		}

		oldLink, hadLink := obj.Link()
		newLink := okr.ParentLink{CorporateObjectiveID: corp.ID, KeyResultIndex: in.KeyResultIndex}
		obj.SetLink(newLink)
		obj.LinkedBy = pointers.UUID(in.CallerID)
		obj.Frozen = corp.Frozen

		now := a.e.now()
		if err := a.e.writeObjective(dbc, obj, now, map[string]any{
			"parent_corporate_objective_id": newLink.CorporateObjectiveID,
			"parent_key_result_index":       newLink.KeyResultIndex,
			"linked_by":                     in.CallerID,
			"frozen":                        obj.Frozen,
		}); err != nil {
			return err
		}

		ev := a.e.event(now)
		if _, _, err := a.e.rollup(dbc, newLink, rollupTrigger{mode: rollupCascade, op: op, objectiveID: obj.ID, ev: ev}); err != nil {
			return err
		}
		if hadLink && oldLink != newLink {
			if _, _, err := a.e.rollup(dbc, oldLink, rollupTrigger{mode: rollupDetach, op: op, objectiveID: obj.ID, ev: ev}); err != nil {
				return err
			}
		}
		if err := a.e.projectObjective(dbc, obj, ev); err != nil {
			return err
		}
		out = obj
		return nil
	})
	return out, err
}

func (a *objectiveAggregate) SetObjectiveFrozen(ctx context.Context, objectiveID uuid.UUID, frozen bool) (*okr.Objective, error) {
	const op = "okr.objective.set_frozen"
	var out *okr.Objective
	scope := newLockScope(a.e.deps.Locker)
	defer scope.Release()
	err := executeWrite(ctx, a.e.deps.Base, op, func(dbc dbctx.Context) error {
		if objectiveID == uuid.Nil {
			return domainagg.NewError(domainagg.CodeValidation, op, "missing objective_id", nil)
		}
		obj, err := a.e.lockObjective(dbc, scope, op, objectiveID)
		if err != nil {
			return err
		}
		if obj.Frozen == frozen {
			out = obj
			return nil
		}
		if link, ok := obj.Link(); ok && !frozen {
			corp, err := a.e.deps.Corporate.GetByID(dbc, link.CorporateObjectiveID)
			if err != nil {
				return err
			}
			if corp == nil {
				a.e.deps.Base.Log.Error("dangling parent link on unfreeze",
					"objective_id", obj.ID, "corporate_objective_id", link.CorporateObjectiveID)
				return ConsistencyError("parent link points to a missing corporate objective")
			}
			if corp.Frozen {
				return a.e.reject(op, domainagg.CodeFrozen, "linked corporate objective is frozen", "objective_id", obj.ID)
			}
		}

		obj.Frozen = frozen
		now := a.e.now()
		if err := a.e.writeObjective(dbc, obj, now, map[string]any{"frozen": frozen}); err != nil {
			return err
		}
		if err := a.e.projectObjective(dbc, obj, a.e.event(now)); err != nil {
			return err
		}
		out = obj
		return nil
	})
	return out, err
}

// lockObjective reads the objective to learn its parent link, takes the lock
// keys for it, its parent and any extra corporate objectives in one sorted
// batch, then reloads it FOR UPDATE. A link that moved while waiting is retryable.
func (e *okrEngine) lockObjective(dbc dbctx.Context, scope *LockScope, op string, id uuid.UUID, extraCorporate ...uuid.UUID) (*okr.Objective, error) {
	peek, err := e.deps.Objectives.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if peek == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "objective not found", nil)
	}

	keys := []string{objectiveLockKey(id)}
	if link, ok := peek.Link(); ok {
		keys = append(keys, corporateLockKey(link.CorporateObjectiveID))
	}
	for _, cid := range extraCorporate {
		if cid != uuid.Nil {
			keys = append(keys, corporateLockKey(cid))
		}
	}
	if err := scope.Acquire(dbc.Ctx, keys...); err != nil {
		return nil, err
	}

	obj, err := e.deps.Objectives.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "objective not found", nil)
	}
	before, hadBefore := peek.Link()
	after, hasAfter := obj.Link()
	if hadBefore != hasAfter || before != after {
		return nil, RetryableError("objective parent link changed while waiting for lock")
	}
	return obj, nil
}

// cascadeObjective runs the steps that follow any change to an objective's
// key results: roll up into the parent when linked, then project the objective.
func (e *okrEngine) cascadeObjective(dbc dbctx.Context, op string, obj *okr.Objective, ev okr.ProjectionEvent) error {
	if link, ok := obj.Link(); ok {
		if _, _, err := e.rollup(dbc, link, rollupTrigger{mode: rollupCascade, op: op, objectiveID: obj.ID, ev: ev}); err != nil {
			return err
		}
	}
	return e.projectObjective(dbc, obj, ev)
}

// reject logs a business-rule rejection at debug level and returns it as a coded error.
func (e *okrEngine) reject(op string, code domainagg.ErrorCode, msg string, kv ...any) error {
	e.deps.Base.Log.Debug("okr write rejected", append([]any{"op", op, "code", string(code), "reason", msg}, kv...)...)
	return domainagg.NewError(code, op, msg, nil)
}

func deadlineAfter(op string, deadline *time.Time, now time.Time) (*time.Time, error) {
	if deadline == nil {
		return nil, nil
	}
	d := pointers.UTC(deadline)
	if !d.After(now) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "deadline must be after creation time", nil)
	}
	return d, nil
}

func buildKeyResults(inputs []domainagg.KeyResultInput, corporate bool) datatypes.JSONSlice[okr.KeyResult] {
	out := make(datatypes.JSONSlice[okr.KeyResult], 0, len(inputs))
	for _, in := range inputs {
		kr := okr.KeyResult{
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			MetricKind:  in.MetricKind,
			StartValue:  in.StartValue,
			TargetValue: in.TargetValue,
			ActualValue: in.StartValue,
			Unit:        strings.TrimSpace(in.Unit),
		}
		if in.ActualValue != nil {
			kr.ActualValue = *in.ActualValue
		}
		if corporate {
			kr.DelegatedTeamIDs = dedupeTeams(in.DelegatedTeamIDs)
		}
		kr.Recompute()
		out = append(out, kr)
	}
	return out
}

// dedupeTeams drops nil and repeated ids, keeping first-seen order.
func dedupeTeams(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
