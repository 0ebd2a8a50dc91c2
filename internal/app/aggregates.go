package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/okrbridge-backend/internal/data/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/data/repos"
	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

type Aggregates struct {
	Objectives domainagg.ObjectiveAggregate
	Corporate  domainagg.CorporateObjectiveAggregate
	Stats      domainagg.OKRStatsReader
}

func wireAggregates(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Set, locker aggregates.Locker, hooks aggregates.Hooks) Aggregates {
	log.Info("Wiring aggregates...")
	deps := aggregates.OKRAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: hooks,
		},
		Objectives: reposet.Objectives,
		Corporate:  reposet.Corporate,
		CheckIns:   reposet.CheckIns,
		Stats:      reposet.Stats,
		Locker:     locker,
		Policy:     cfg.Policy,
	}
	return Aggregates{
		Objectives: aggregates.NewObjectiveAggregate(deps),
		Corporate:  aggregates.NewCorporateObjectiveAggregate(deps),
		Stats:      aggregates.NewOKRStatsReader(deps),
	}
}
