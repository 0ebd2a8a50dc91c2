package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/okrbridge-backend/internal/data/repos"
	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

type RecomputeResult struct {
	CorporateObjectiveID uuid.UUID
	KeyResultIndex       int
	Progress             int
	Err                  error
}

// recomputeAttempts bounds retries of a key result whose recompute lost a lock or CAS race.
const recomputeAttempts = 3

type RecomputeReport struct {
	Results []RecomputeResult
	Failed  int
}

// RecomputeDelegated re-runs the rollup for every delegated key result of the
// given corporate objectives (all of them when ids is empty). One failing key
// result does not stop the others; the report carries every outcome.
func RecomputeDelegated(
	ctx context.Context,
	log *logger.Logger,
	corporate domainagg.CorporateObjectiveAggregate,
	repo repos.CorporateObjectiveRepo,
	ids []uuid.UUID,
	concurrency int,
) (RecomputeReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if len(ids) == 0 {
		all, err := repo.ListIDs(dbc)
		if err != nil {
			return RecomputeReport{}, fmt.Errorf("list corporate objectives: %w", err)
		}
		ids = all
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	type target struct {
		id  uuid.UUID
		idx int
	}
	targets := make([]target, 0, len(ids))
	for _, id := range ids {
		corp, err := repo.GetByID(dbc, id)
		if err != nil {
			return RecomputeReport{}, fmt.Errorf("load corporate objective %s: %w", id, err)
		}
		if corp == nil {
			log.Warn("corporate objective not found; skipping", "corporate_objective_id", id)
			continue
		}
		for idx, kr := range corp.KeyResults {
			if len(kr.DelegatedTeamIDs) > 0 {
				targets = append(targets, target{id: corp.ID, idx: idx})
			}
		}
	}

	var (
		mu     sync.Mutex
		report RecomputeReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, tg := range targets {
		tg := tg
		g.Go(func() error {
			res := RecomputeResult{CorporateObjectiveID: tg.id, KeyResultIndex: tg.idx}
			corp, err := recomputeWithRetry(gctx, corporate, tg.id, tg.idx)
			if err != nil {
				res.Err = err
				log.Warn("recompute failed", "corporate_objective_id", tg.id, "key_result_index", tg.idx, "error", err)
			} else {
				res.Progress = corp.KeyResults[tg.idx].Progress
			}
			mu.Lock()
			report.Results = append(report.Results, res)
			if err != nil {
				report.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.CorporateObjectiveID != b.CorporateObjectiveID {
			return a.CorporateObjectiveID.String() < b.CorporateObjectiveID.String()
		}
		return a.KeyResultIndex < b.KeyResultIndex
	})
	log.Info("recompute finished", "key_results", len(report.Results), "failed", report.Failed)
	return report, nil
}

func recomputeWithRetry(ctx context.Context, corporate domainagg.CorporateObjectiveAggregate, id uuid.UUID, idx int) (*okr.CorporateObjective, error) {
	var (
		corp *okr.CorporateObjective
		err  error
	)
	for attempt := 0; attempt < recomputeAttempts; attempt++ {
		corp, err = corporate.RecomputeDelegatedKeyResult(ctx, id, idx)
		if err == nil || !domainagg.CodeOf(err).Retryable() || ctx.Err() != nil {
			return corp, err
		}
	}
	return corp, err
}
