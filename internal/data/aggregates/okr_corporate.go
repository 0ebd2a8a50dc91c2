package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
)

type corporateObjectiveAggregate struct {
	e *okrEngine
}

func NewCorporateObjectiveAggregate(deps OKRAggregateDeps) domainagg.CorporateObjectiveAggregate {
	deps = deps.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "OKR.CorporateObjective")
	return &corporateObjectiveAggregate{e: newOKREngine(deps)}
}

func (a *corporateObjectiveAggregate) Contract() domainagg.Contract {
	return domainagg.CorporateObjectiveAggregateContract
}

func (a *corporateObjectiveAggregate) CreateCorporateObjective(ctx context.Context, in domainagg.CreateCorporateObjectiveInput) (domainagg.CreateObjectiveResult, error) {
	const op = "okr.corporate.create"
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

		corp := &okr.CorporateObjective{
			CompanyID:   in.CompanyID,
			CreatorID:   in.CreatorID,
			Objective:   text,
			Description: strings.TrimSpace(in.Description),
			Deadline:    deadline,
			KeyResults:  buildKeyResults(in.KeyResults, true),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		corp.Reaggregate()
		if _, err := a.e.deps.Corporate.Create(dbc, []*okr.CorporateObjective{corp}); err != nil {
			return err
		}
		if err := a.e.projectCorporate(dbc, corp, withHistory(a.e.event(now))); err != nil {
			return err
		}
		out = domainagg.CreateObjectiveResult{ID: corp.ID, Progress: corp.Progress, CreatedAt: corp.CreatedAt}
		return nil
	})
	return out, err
}

// SetCorporateFrozen always re-applies the flag to every linked objective, so
// a repeated call also repairs children that drifted out of sync.
func (a *corporateObjectiveAggregate) SetCorporateFrozen(ctx context.Context, corporateObjectiveID uuid.UUID, frozen bool) (*okr.CorporateObjective, error) {
	const op = "okr.corporate.set_frozen"
	var out *okr.CorporateObjective
	scope := newLockScope(a.e.deps.Locker)
	defer scope.Release()
	err := executeWrite(ctx, a.e.deps.Base, op, func(dbc dbctx.Context) error {
		corp, err := a.e.lockCorporate(dbc, scope, op, corporateObjectiveID)
		if err != nil {
			return err
		}

		now := a.e.now()
		if corp.Frozen != frozen {
			corp.Frozen = frozen
			if err := a.e.writeCorporate(dbc, corp, now, map[string]any{"frozen": frozen}); err != nil {
				return err
			}
		}

		n, err := a.e.deps.Objectives.SetFrozenByCorporate(dbc, corp.ID, frozen)
		if err != nil {
			return err
		}
		linked, err := a.e.deps.Objectives.ListByCorporate(dbc, corp.ID)
		if err != nil {
			return err
		}
		if int64(len(linked)) != n {
			a.e.deps.Base.Log.Warn("freeze cascade row count differs from linked objectives",
				"corporate_objective_id", corp.ID, "updated", n, "linked", len(linked))
		}
		a.e.deps.Base.Hooks.ObserveCascade(op, len(linked))

		ev := a.e.event(now)
		for _, obj := range linked {
			if err := a.e.projectObjective(dbc, obj, ev); err != nil {
				return err
			}
		}
		if err := a.e.projectCorporate(dbc, corp, ev); err != nil {
			return err
		}
		a.e.deps.Base.Log.Info("corporate freeze cascaded",
			"corporate_objective_id", corp.ID, "frozen", frozen, "objectives", len(linked))
		out = corp
		return nil
	})
	return out, err
}

// AssignTeams replaces the delegated team list. Existing parent links are left
// as they are; only future links check delegation.
func (a *corporateObjectiveAggregate) AssignTeams(ctx context.Context, in domainagg.AssignTeamsInput) ([]uuid.UUID, error) {
	const op = "okr.corporate.assign_teams"
	var out []uuid.UUID
	scope := newLockScope(a.e.deps.Locker)
	defer scope.Release()
	err := executeWrite(ctx, a.e.deps.Base, op, func(dbc dbctx.Context) error {
		if err := validateInput(op, in); err != nil {
			return err
		}
		corp, err := a.e.lockCorporate(dbc, scope, op, in.CorporateObjectiveID)
		if err != nil {
			return err
		}
		if corp.Frozen {
			return a.e.reject(op, domainagg.CodeFrozen, "corporate objective is frozen", "corporate_objective_id", corp.ID)
		}
		if !corp.HasKeyResult(in.KeyResultIndex) {
			return a.e.reject(op, domainagg.CodeInvalidIndex, "corporate key result index out of range",
				"corporate_objective_id", corp.ID, "index", in.KeyResultIndex)
		}

		teams := dedupeTeams(in.TeamIDs)
		corp.KeyResults[in.KeyResultIndex].DelegatedTeamIDs = teams
		if err := a.e.writeCorporate(dbc, corp, a.e.now(), map[string]any{"key_results": corp.KeyResults}); err != nil {
			return err
		}
		out = teams
		return nil
	})
	return out, err
}

func (a *corporateObjectiveAggregate) RecomputeDelegatedKeyResult(ctx context.Context, corporateObjectiveID uuid.UUID, keyResultIndex int) (*okr.CorporateObjective, error) {
	const op = "okr.corporate.recompute_delegated"
	var out *okr.CorporateObjective
	scope := newLockScope(a.e.deps.Locker)
	defer scope.Release()
	err := executeWrite(ctx, a.e.deps.Base, op, func(dbc dbctx.Context) error {
		if corporateObjectiveID == uuid.Nil {
			return domainagg.NewError(domainagg.CodeValidation, op, "missing corporate_objective_id", nil)
		}
		if err := scope.Acquire(dbc.Ctx, corporateLockKey(corporateObjectiveID)); err != nil {
			return err
		}
		link := okr.ParentLink{CorporateObjectiveID: corporateObjectiveID, KeyResultIndex: keyResultIndex}
		corp, _, err := a.e.rollup(dbc, link, rollupTrigger{mode: rollupDirect, op: op})
		if err != nil {
			return err
		}
		out = corp
		return nil
	})
	return out, err
}

func (e *okrEngine) lockCorporate(dbc dbctx.Context, scope *LockScope, op string, id uuid.UUID) (*okr.CorporateObjective, error) {
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing corporate_objective_id", nil)
	}
	if err := scope.Acquire(dbc.Ctx, corporateLockKey(id)); err != nil {
		return nil, err
	}
	corp, err := e.deps.Corporate.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if corp == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "corporate objective not found", nil)
	}
	return corp, nil
}
