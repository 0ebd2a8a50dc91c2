package aggregates

import (
	"time"

	"github.com/yungbote/okrbridge-backend/internal/data/repos"
	"github.com/yungbote/okrbridge-backend/internal/domain/okr"
)

// OKRPolicy carries the rollup and classification knobs.
type OKRPolicy struct {
	// ResetEmptyRollup drops a delegated key result to 0 once no objective links
	// to it anymore. The zero value keeps its last rolled-up progress.
	ResetEmptyRollup bool
	AtRiskWindow     time.Duration
}

func DefaultOKRPolicy() OKRPolicy {
	return OKRPolicy{AtRiskWindow: okr.DefaultAtRiskWindow}
}

type OKRAggregateDeps struct {
	Base BaseDeps

	Objectives repos.ObjectiveRepo
	Corporate  repos.CorporateObjectiveRepo
	CheckIns   repos.CheckInRepo
	Stats      repos.StatsRepo

	// Locker serializes cascades per objective and corporate objective. Nil
	// falls back to a process-wide in-memory locker.
	Locker Locker
	Policy OKRPolicy
	Now    func() time.Time
}

func (d OKRAggregateDeps) withDefaults() OKRAggregateDeps {
	d.Base = d.Base.withDefaults()
	if d.Locker == nil {
		d.Locker = sharedKeyLocker
	}
	if d.Policy.AtRiskWindow <= 0 {
		d.Policy.AtRiskWindow = okr.DefaultAtRiskWindow
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// okrEngine is the ordered pipeline shared by the objective and corporate
// aggregates: aggregate, roll up, cascade, project.
type okrEngine struct {
	deps OKRAggregateDeps
}

func newOKREngine(deps OKRAggregateDeps) *okrEngine {
	return &okrEngine{deps: deps.withDefaults()}
}

func (e *okrEngine) now() time.Time { return e.deps.Now().UTC() }

func (e *okrEngine) event(at time.Time) okr.ProjectionEvent {
	return okr.ProjectionEvent{At: at, AtRiskWindow: e.deps.Policy.AtRiskWindow}
}
