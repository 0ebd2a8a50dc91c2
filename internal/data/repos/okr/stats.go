package okr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

// StatsRepo persists the derived-stats projections. Only the stats projector writes through it.
type StatsRepo interface {
	GetObjectiveStats(dbc dbctx.Context, objectiveID uuid.UUID) (*types.ObjectiveStats, error)
	SaveObjectiveStats(dbc dbctx.Context, row *types.ObjectiveStats) error
	ListObjectiveStatsByCorporate(dbc dbctx.Context, corporateObjectiveID uuid.UUID) ([]*types.ObjectiveStats, error)

	GetCorporateStats(dbc dbctx.Context, corporateObjectiveID uuid.UUID) (*types.CorporateObjectiveStats, error)
	SaveCorporateStats(dbc dbctx.Context, row *types.CorporateObjectiveStats) error
}

type statsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatsRepo(db *gorm.DB, log *logger.Logger) StatsRepo {
	return &statsRepo{db: db, log: log.With("repo", "StatsRepo")}
}

// GetObjectiveStats returns nil, nil when no projection exists yet.
func (r *statsRepo) GetObjectiveStats(dbc dbctx.Context, objectiveID uuid.UUID) (*types.ObjectiveStats, error) {
	if objectiveID == uuid.Nil {
		return nil, fmt.Errorf("missing objective_id")
	}
	var out types.ObjectiveStats
	err := dbc.DB(r.db).Where("objective_id = ?", objectiveID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveObjectiveStats inserts when the row has no id yet, otherwise rewrites every column.
func (r *statsRepo) SaveObjectiveStats(dbc dbctx.Context, row *types.ObjectiveStats) error {
	if row == nil || row.ObjectiveID == uuid.Nil {
		return fmt.Errorf("missing objective_id")
	}
	if row.ID == uuid.Nil {
		return dbc.DB(r.db).Create(row).Error
	}
	return dbc.DB(r.db).Save(row).Error
}

func (r *statsRepo) ListObjectiveStatsByCorporate(dbc dbctx.Context, corporateObjectiveID uuid.UUID) ([]*types.ObjectiveStats, error) {
	if corporateObjectiveID == uuid.Nil {
		return nil, fmt.Errorf("missing corporate_objective_id")
	}
	var out []*types.ObjectiveStats
	if err := dbc.DB(r.db).
		Model(&types.ObjectiveStats{}).
		Where("parent_corporate_objective_id = ?", corporateObjectiveID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetCorporateStats returns nil, nil when no projection exists yet.
func (r *statsRepo) GetCorporateStats(dbc dbctx.Context, corporateObjectiveID uuid.UUID) (*types.CorporateObjectiveStats, error) {
	if corporateObjectiveID == uuid.Nil {
		return nil, fmt.Errorf("missing corporate_objective_id")
	}
	var out types.CorporateObjectiveStats
	err := dbc.DB(r.db).Where("corporate_objective_id = ?", corporateObjectiveID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *statsRepo) SaveCorporateStats(dbc dbctx.Context, row *types.CorporateObjectiveStats) error {
	if row == nil || row.CorporateObjectiveID == uuid.Nil {
		return fmt.Errorf("missing corporate_objective_id")
	}
	if row.ID == uuid.Nil {
		return dbc.DB(r.db).Create(row).Error
	}
	return dbc.DB(r.db).Save(row).Error
}
