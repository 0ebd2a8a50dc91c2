package okr

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

type ObjectiveRepo interface {
	Create(dbc dbctx.Context, rows []*types.Objective) ([]*types.Objective, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Objective, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Objective, error)
	// ListByParent answers "who links to this corporate key result".
	ListByParent(dbc dbctx.Context, corporateObjectiveID uuid.UUID, keyResultIndex int) ([]*types.Objective, error)
	ListByCorporate(dbc dbctx.Context, corporateObjectiveID uuid.UUID) ([]*types.Objective, error)
	SetFrozenByCorporate(dbc dbctx.Context, corporateObjectiveID uuid.UUID, frozen bool) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type objectiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewObjectiveRepo(db *gorm.DB, log *logger.Logger) ObjectiveRepo {
	return &objectiveRepo{db: db, log: log.With("repo", "ObjectiveRepo")}
}

func (r *objectiveRepo) Create(dbc dbctx.Context, rows []*types.Objective) ([]*types.Objective, error) {
	if len(rows) == 0 {
		return []*types.Objective{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns nil, nil when the objective does not exist.
func (r *objectiveRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Objective, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.Objective
	err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *objectiveRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Objective, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out types.Objective
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *objectiveRepo) ListByParent(dbc dbctx.Context, corporateObjectiveID uuid.UUID, keyResultIndex int) ([]*types.Objective, error) {
	if corporateObjectiveID == uuid.Nil {
		return nil, fmt.Errorf("missing corporate_objective_id")
	}
	var out []*types.Objective
	if err := dbc.DB(r.db).
		Model(&types.Objective{}).
		Where("parent_corporate_objective_id = ? AND parent_key_result_index = ?", corporateObjectiveID, keyResultIndex).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *objectiveRepo) ListByCorporate(dbc dbctx.Context, corporateObjectiveID uuid.UUID) ([]*types.Objective, error) {
	if corporateObjectiveID == uuid.Nil {
		return nil, fmt.Errorf("missing corporate_objective_id")
	}
	var out []*types.Objective
	if err := dbc.DB(r.db).
		Model(&types.Objective{}).
		Where("parent_corporate_objective_id = ?", corporateObjectiveID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *objectiveRepo) SetFrozenByCorporate(dbc dbctx.Context, corporateObjectiveID uuid.UUID, frozen bool) (int64, error) {
	if corporateObjectiveID == uuid.Nil {
		return 0, fmt.Errorf("missing corporate_objective_id")
	}
	res := dbc.DB(r.db).
		Model(&types.Objective{}).
		Where("parent_corporate_objective_id = ?", corporateObjectiveID).
		Updates(map[string]interface{}{
			"frozen":     frozen,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *objectiveRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.Objective{}).
		Where("id = ?", id).
		Updates(updates).Error
}
