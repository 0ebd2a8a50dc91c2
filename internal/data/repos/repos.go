package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/okrbridge-backend/internal/data/repos/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

type ObjectiveRepo = okr.ObjectiveRepo
type CorporateObjectiveRepo = okr.CorporateObjectiveRepo
type CheckInRepo = okr.CheckInRepo
type StatsRepo = okr.StatsRepo

func NewObjectiveRepo(db *gorm.DB, baseLog *logger.Logger) ObjectiveRepo {
	return okr.NewObjectiveRepo(db, baseLog)
}
func NewCorporateObjectiveRepo(db *gorm.DB, baseLog *logger.Logger) CorporateObjectiveRepo {
	return okr.NewCorporateObjectiveRepo(db, baseLog)
}
func NewCheckInRepo(db *gorm.DB, baseLog *logger.Logger) CheckInRepo {
	return okr.NewCheckInRepo(db, baseLog)
}
func NewStatsRepo(db *gorm.DB, baseLog *logger.Logger) StatsRepo {
	return okr.NewStatsRepo(db, baseLog)
}

// Set bundles every repo the OKR aggregates need.
type Set struct {
	Objectives ObjectiveRepo
	Corporate  CorporateObjectiveRepo
	CheckIns   CheckInRepo
	Stats      StatsRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Objectives: NewObjectiveRepo(db, baseLog),
		Corporate:  NewCorporateObjectiveRepo(db, baseLog),
		CheckIns:   NewCheckInRepo(db, baseLog),
		Stats:      NewStatsRepo(db, baseLog),
	}
}
