package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/okrbridge-backend/internal/domain/okr"
)

// KR builds a key result with its progress already derived.
func KR(kind types.MetricKind, start, target, actual float64) types.KeyResult {
	kr := types.KeyResult{
		Title:       "kr",
		MetricKind:  kind,
		StartValue:  start,
		TargetValue: target,
		ActualValue: actual,
	}
	kr.Recompute()
	return kr
}

func SeedCorporateObjective(tb testing.TB, ctx context.Context, tx *gorm.DB, krs ...types.KeyResult) *types.CorporateObjective {
	tb.Helper()
	c := &types.CorporateObjective{
		ID:         uuid.New(),
		CompanyID:  uuid.New(),
		CreatorID:  uuid.New(),
		Objective:  "corporate objective",
		KeyResults: datatypes.JSONSlice[types.KeyResult](krs),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	c.Reaggregate()
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed corporate objective: %v", err)
	}
	return c
}

func SeedObjective(tb testing.TB, ctx context.Context, tx *gorm.DB, teamID uuid.UUID, krs ...types.KeyResult) *types.Objective {
	tb.Helper()
	o := &types.Objective{
		ID:         uuid.New(),
		TeamID:     teamID,
		CreatorID:  uuid.New(),
		Objective:  "team objective",
		KeyResults: datatypes.JSONSlice[types.KeyResult](krs),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	o.Reaggregate()
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed objective: %v", err)
	}
	return o
}

// SeedLinkedObjective seeds an objective already pointing at one corporate key result.
func SeedLinkedObjective(tb testing.TB, ctx context.Context, tx *gorm.DB, teamID uuid.UUID, link types.ParentLink, krs ...types.KeyResult) *types.Objective {
	tb.Helper()
	o := &types.Objective{
		ID:         uuid.New(),
		TeamID:     teamID,
		CreatorID:  uuid.New(),
		Objective:  "linked team objective",
		KeyResults: datatypes.JSONSlice[types.KeyResult](krs),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	o.SetLink(link)
	o.Reaggregate()
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed linked objective: %v", err)
	}
	return o
}
