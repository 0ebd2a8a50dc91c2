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

type CorporateObjectiveRepo interface {
	Create(dbc dbctx.Context, rows []*types.CorporateObjective) ([]*types.CorporateObjective, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CorporateObjective, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CorporateObjective, error)
	ListByCompany(dbc dbctx.Context, companyID uuid.UUID) ([]*types.CorporateObjective, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type corporateObjectiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCorporateObjectiveRepo(db *gorm.DB, log *logger.Logger) CorporateObjectiveRepo {
	return &corporateObjectiveRepo{db: db, log: log.With("repo", "CorporateObjectiveRepo")}
}

func (r *corporateObjectiveRepo) Create(dbc dbctx.Context, rows []*types.CorporateObjective) ([]*types.CorporateObjective, error) {
	if len(rows) == 0 {
		return []*types.CorporateObjective{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns nil, nil when the corporate objective does not exist.
func (r *corporateObjectiveRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CorporateObjective, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.CorporateObjective
	err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *corporateObjectiveRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CorporateObjective, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out types.CorporateObjective
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

func (r *corporateObjectiveRepo) ListByCompany(dbc dbctx.Context, companyID uuid.UUID) ([]*types.CorporateObjective, error) {
	if companyID == uuid.Nil {
		return nil, fmt.Errorf("missing company_id")
	}
	var out []*types.CorporateObjective
	if err := dbc.DB(r.db).
		Model(&types.CorporateObjective{}).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *corporateObjectiveRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.CorporateObjective{}).
		Order("created_at ASC").
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *corporateObjectiveRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.CorporateObjective{}).
		Where("id = ?", id).
		Updates(updates).Error
}
