package aggregates_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/okrbridge-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/okrbridge-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/okrbridge-backend/internal/data/repos"
	repotestutil "github.com/yungbote/okrbridge-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
	"github.com/yungbote/okrbridge-backend/internal/pkg/dbctx"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type okrFixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	repos repos.Set
	hooks *aggtestutil.HooksRecorder
	clock *testClock
	deps  aggregates.OKRAggregateDeps

	objectives domainagg.ObjectiveAggregate
	corporate  domainagg.CorporateObjectiveAggregate
	stats      domainagg.OKRStatsReader
}

func newOKRFixture(t *testing.T, mutate ...func(*aggregates.OKRAggregateDeps)) *okrFixture {
	t.Helper()
	db := repotestutil.DB(t)
	log := repotestutil.Logger(t)
	set := repos.NewSet(db, log)
	hooks := &aggtestutil.HooksRecorder{}
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	deps := aggregates.OKRAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: hooks,
		},
		Objectives: set.Objectives,
		Corporate:  set.Corporate,
		CheckIns:   set.CheckIns,
		Stats:      set.Stats,
		Locker:     aggregates.NewKeyLocker(),
		Policy:     aggregates.DefaultOKRPolicy(),
		Now:        clock.Now,
	}
	for _, m := range mutate {
		m(&deps)
	}

	return &okrFixture{
		t:          t,
		ctx:        context.Background(),
		db:         db,
		repos:      set,
		hooks:      hooks,
		clock:      clock,
		deps:       deps,
		objectives: aggregates.NewObjectiveAggregate(deps),
		corporate:  aggregates.NewCorporateObjectiveAggregate(deps),
		stats:      aggregates.NewOKRStatsReader(deps),
	}
}

func (f *okrFixture) dbc() dbctx.Context { return dbctx.Context{Ctx: f.ctx} }

func (f *okrFixture) objective(id uuid.UUID) *okr.Objective {
	f.t.Helper()
	obj, err := f.repos.Objectives.GetByID(f.dbc(), id)
	require.NoError(f.t, err)
	require.NotNil(f.t, obj)
	return obj
}

func (f *okrFixture) corporateObjective(id uuid.UUID) *okr.CorporateObjective {
	f.t.Helper()
	corp, err := f.repos.Corporate.GetByID(f.dbc(), id)
	require.NoError(f.t, err)
	require.NotNil(f.t, corp)
	return corp
}

func (f *okrFixture) objectiveStats(id uuid.UUID) *okr.ObjectiveStats {
	f.t.Helper()
	stats, err := f.repos.Stats.GetObjectiveStats(f.dbc(), id)
	require.NoError(f.t, err)
	return stats
}

func (f *okrFixture) corporateStats(id uuid.UUID) *okr.CorporateObjectiveStats {
	f.t.Helper()
	stats, err := f.repos.Stats.GetCorporateStats(f.dbc(), id)
	require.NoError(f.t, err)
	return stats
}

func (f *okrFixture) checkInCount(objectiveID uuid.UUID) int64 {
	f.t.Helper()
	n, err := f.repos.CheckIns.CountByObjective(f.dbc(), objectiveID)
	require.NoError(f.t, err)
	return n
}

// delegatedCorporate seeds a corporate objective with one key result delegated to teams.
func (f *okrFixture) delegatedCorporate(teams ...uuid.UUID) *okr.CorporateObjective {
	f.t.Helper()
	kr := repotestutil.KR(okr.MetricAbsolute, 0, 100, 0)
	kr.DelegatedTeamIDs = teams
	return repotestutil.SeedCorporateObjective(f.t, f.ctx, f.db, kr)
}

func requireCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, domainagg.IsCode(err, code), "want code %s, got %s (%v)", code, domainagg.CodeOf(err), err)
}
