package aggregates

import (
	"context"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
)

// projectObjective loads (or starts) the objective's stats row, mirrors obj
// into it, and saves it inside the caller's transaction.
func (e *okrEngine) projectObjective(dbc dbctx.Context, obj *okr.Objective, ev okr.ProjectionEvent) error {
	stats, err := e.deps.Stats.GetObjectiveStats(dbc, obj.ID)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = &okr.ObjectiveStats{ObjectiveID: obj.ID, CreatedAt: ev.At}
	}
	okr.ProjectObjective(stats, obj, ev)
	return e.deps.Stats.SaveObjectiveStats(dbc, stats)
}

func (e *okrEngine) projectCorporate(dbc dbctx.Context, corp *okr.CorporateObjective, ev okr.ProjectionEvent) error {
	stats, err := e.deps.Stats.GetCorporateStats(dbc, corp.ID)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = &okr.CorporateObjectiveStats{CorporateObjectiveID: corp.ID, CreatedAt: ev.At}
	}
	okr.ProjectCorporate(stats, corp, ev)
	return e.deps.Stats.SaveCorporateStats(dbc, stats)
}

// snapshotChanged reports whether a mutation moved overall or per-key-result progress.
func snapshotChanged(beforeProgress int, beforeKRs []int, afterProgress int, afterKRs []int) bool {
	if beforeProgress != afterProgress || len(beforeKRs) != len(afterKRs) {
		return true
	}
	for i := range beforeKRs {
		if beforeKRs[i] != afterKRs[i] {
			return true
		}
	}
	return false
}

type okrStatsReader struct {
	engine *okrEngine
}

func NewOKRStatsReader(deps OKRAggregateDeps) domainagg.OKRStatsReader {
	return &okrStatsReader{engine: newOKREngine(deps)}
}

// ObjectiveStats returns the stored projection with its status re-evaluated
// against the current time, since at_risk depends on days until the deadline.
func (r *okrStatsReader) ObjectiveStats(ctx context.Context, objectiveID uuid.UUID) (*okr.ObjectiveStats, error) {
	const op = "okr.stats.objective"
	if objectiveID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing objective_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	stats, err := r.engine.deps.Stats.GetObjectiveStats(dbc, objectiveID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if stats == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "objective stats not found", nil)
	}
	obj, err := r.engine.deps.Objectives.GetByID(dbc, objectiveID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if obj != nil && stats.Status != okr.StatusCompleted {
		stats.Status = okr.Classify(stats.Progress, obj.Deadline, r.engine.now(), r.engine.deps.Policy.AtRiskWindow)
	}
	return stats, nil
}

func (r *okrStatsReader) CorporateObjectiveStats(ctx context.Context, corporateObjectiveID uuid.UUID) (*okr.CorporateObjectiveStats, error) {
	const op = "okr.stats.corporate"
	if corporateObjectiveID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing corporate_objective_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	stats, err := r.engine.deps.Stats.GetCorporateStats(dbc, corporateObjectiveID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if stats == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "corporate objective stats not found", nil)
	}
	corp, err := r.engine.deps.Corporate.GetByID(dbc, corporateObjectiveID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if corp != nil && stats.Status != okr.StatusCompleted {
		stats.Status = okr.Classify(stats.Progress, corp.Deadline, r.engine.now(), r.engine.deps.Policy.AtRiskWindow)
	}
	return stats, nil
}
