package okr

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

// CheckInRepo is append-only. Check-ins are never updated.
type CheckInRepo interface {
	Create(dbc dbctx.Context, row *types.CheckIn) (*types.CheckIn, error)
	ListByObjective(dbc dbctx.Context, objectiveID uuid.UUID, limit int) ([]*types.CheckIn, error)
	CountByObjective(dbc dbctx.Context, objectiveID uuid.UUID) (int64, error)
}

type checkInRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckInRepo(db *gorm.DB, log *logger.Logger) CheckInRepo {
	return &checkInRepo{db: db, log: log.With("repo", "CheckInRepo")}
}

func (r *checkInRepo) Create(dbc dbctx.Context, row *types.CheckIn) (*types.CheckIn, error) {
	if row == nil {
		return nil, fmt.Errorf("missing check-in")
	}
	if row.ObjectiveID == uuid.Nil {
		return nil, fmt.Errorf("missing objective_id")
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListByObjective returns the newest check-ins first. limit <= 0 means no limit.
func (r *checkInRepo) ListByObjective(dbc dbctx.Context, objectiveID uuid.UUID, limit int) ([]*types.CheckIn, error) {
	if objectiveID == uuid.Nil {
		return nil, fmt.Errorf("missing objective_id")
	}
	q := dbc.DB(r.db).
		Model(&types.CheckIn{}).
		Where("objective_id = ?", objectiveID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.CheckIn
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *checkInRepo) CountByObjective(dbc dbctx.Context, objectiveID uuid.UUID) (int64, error) {
	if objectiveID == uuid.Nil {
		return 0, fmt.Errorf("missing objective_id")
	}
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.CheckIn{}).
		Where("objective_id = ?", objectiveID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
