package aggregates

import (
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
)

type rollupMode int

const (
	// rollupCascade runs because a linked objective changed. A missing target
	// means the objective holds a dangling link.
	rollupCascade rollupMode = iota
	// rollupDirect is an explicit recompute. A missing target is not_found and
	// an unchanged result writes nothing.
	rollupDirect
	// rollupDetach recomputes the key result an objective just unlinked from.
	// A missing target is logged and skipped so a dangling link can be repaired.
	rollupDetach
)

type rollupTrigger struct {
	mode        rollupMode
	op          string
	objectiveID uuid.UUID
	ev          okr.ProjectionEvent
}

// rollup recomputes one delegated key result from every objective currently
// linked to it, re-aggregates the corporate objective, and projects its stats.
// The caller must already hold the corporate lock key.
func (e *okrEngine) rollup(dbc dbctx.Context, link okr.ParentLink, tr rollupTrigger) (*okr.CorporateObjective, bool, error) {
	corp, err := e.deps.Corporate.LockByID(dbc, link.CorporateObjectiveID)
	if err != nil {
		return nil, false, err
	}
	if corp == nil || !corp.HasKeyResult(link.KeyResultIndex) {
		return nil, false, e.missingRollupTarget(tr, link, corp == nil)
	}

	linked, err := e.deps.Objectives.ListByParent(dbc, link.CorporateObjectiveID, link.KeyResultIndex)
	if err != nil {
		return nil, false, err
	}
	e.deps.Base.Hooks.ObserveCascade(tr.op, len(linked))

	kr := corp.KeyResults[link.KeyResultIndex]
	target := kr.Progress
	switch {
	case len(linked) > 0:
		progresses := make([]int, 0, len(linked))
		for _, o := range linked {
			progresses = append(progresses, o.Progress)
		}
		target = okr.AggregateProgress(progresses)
	case e.deps.Policy.ResetEmptyRollup && len(kr.DelegatedTeamIDs) > 0:
		target = 0
	}

	changed := target != kr.Progress
	if !changed && tr.mode == rollupDirect {
		return corp, false, nil
	}

	now := e.now()
	if changed {
		corp.KeyResults[link.KeyResultIndex].Progress = target
		corp.Reaggregate()
		if err := e.writeCorporate(dbc, corp, now, map[string]any{
			"key_results": corp.KeyResults,
			"progress":    corp.Progress,
		}); err != nil {
			return nil, false, err
		}
		e.deps.Base.Log.Debug("delegated key result rolled up",
			"op", tr.op,
			"corporate_objective_id", corp.ID,
			"key_result_index", link.KeyResultIndex,
			"linked_objectives", len(linked),
			"progress", target,
		)
	}

	ev := tr.ev
	if ev.At.IsZero() {
		ev = e.event(now)
	}
	ev.AppendHistory = changed
	if err := e.projectCorporate(dbc, corp, ev); err != nil {
		return nil, false, err
	}
	return corp, changed, nil
}

func (e *okrEngine) missingRollupTarget(tr rollupTrigger, link okr.ParentLink, corpMissing bool) error {
	what := "key result index"
	if corpMissing {
		what = "corporate objective"
	}
	switch tr.mode {
	case rollupDirect:
		return domainagg.NewError(domainagg.CodeNotFound, tr.op, what+" not found", nil)
	case rollupDetach:
		e.deps.Base.Log.Warn("previous parent link was dangling; skipping its rollup",
			"op", tr.op,
			"objective_id", tr.objectiveID,
			"corporate_objective_id", link.CorporateObjectiveID,
			"key_result_index", link.KeyResultIndex,
		)
		return nil
	default:
		e.deps.Base.Log.Error("dangling parent link during rollup cascade",
			"op", tr.op,
			"objective_id", tr.objectiveID,
			"corporate_objective_id", link.CorporateObjectiveID,
			"key_result_index", link.KeyResultIndex,
			"missing", what,
		)
		return ConsistencyError("parent link points to a missing %s", what)
	}
}

// writeCorporate persists updates with a compare-and-set on version.
func (e *okrEngine) writeCorporate(dbc dbctx.Context, corp *okr.CorporateObjective, now time.Time, updates map[string]any) error {
	return e.deps.Base.CASGuard.Advance(dbc, versionedRow{
		Table:     corp.TableName(),
		ID:        corp.ID,
		Version:   &corp.Version,
		UpdatedAt: &corp.UpdatedAt,
	}, now, updates)
}

func (e *okrEngine) writeObjective(dbc dbctx.Context, obj *okr.Objective, now time.Time, updates map[string]any) error {
	return e.deps.Base.CASGuard.Advance(dbc, versionedRow{
		Table:     obj.TableName(),
		ID:        obj.ID,
		Version:   &obj.Version,
		UpdatedAt: &obj.UpdatedAt,
	}, now, updates)
}
