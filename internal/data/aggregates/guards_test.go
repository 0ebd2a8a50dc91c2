package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/okrbridge-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
)

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := MapError("op", RequireCASSuccess(false, "stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("lost CAS: want conflict got=%v", err)
	}
}

func TestCASGuardUpdateByVersion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	corp := testutil.SeedCorporateObjective(t, ctx, tx)
	guard := NewCASGuard(db)

	ok, err := guard.UpdateByVersion(dbc, "okr_corporate_objective", corp.ID, 0, map[string]any{"frozen": true, "version": 1})
	if err != nil || !ok {
		t.Fatalf("UpdateByVersion(fresh): ok=%v err=%v", ok, err)
	}
	ok, err = guard.UpdateByVersion(dbc, "okr_corporate_objective", corp.ID, 0, map[string]any{"frozen": false, "version": 1})
	if err != nil || ok {
		t.Fatalf("UpdateByVersion(stale): want ok=false got ok=%v err=%v", ok, err)
	}
	if _, err := guard.UpdateByVersion(dbc, "", uuid.New(), 0, map[string]any{"frozen": true}); err == nil {
		t.Fatalf("expected validation error for missing table")
	}
	if _, err := guard.UpdateByVersion(dbc, "okr_corporate_objective", corp.ID, 1, nil); err == nil {
		t.Fatalf("expected validation error for empty update")
	}
}

func TestCASGuardAdvance(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	corp := testutil.SeedCorporateObjective(t, ctx, tx)
	guard := NewCASGuard(db)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	row := versionedRow{Table: corp.TableName(), ID: corp.ID, Version: &corp.Version, UpdatedAt: &corp.UpdatedAt}
	if err := guard.Advance(dbc, row, now, map[string]any{"frozen": true}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if corp.Version != 1 || !corp.UpdatedAt.Equal(now) {
		t.Fatalf("in-memory row: want version=1 updated_at=%v got version=%d updated_at=%v", now, corp.Version, corp.UpdatedAt)
	}

	stale := 0
	err := guard.Advance(dbc, versionedRow{Table: corp.TableName(), ID: corp.ID, Version: &stale}, now, map[string]any{"frozen": false})
	if !domainagg.IsCode(MapError("op", err), domainagg.CodeConflict) {
		t.Fatalf("stale Advance: want conflict got=%v", err)
	}
	if stale != 0 {
		t.Fatalf("stale version must not move, got=%d", stale)
	}
}
