package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/okrbridge-backend/internal/observability"
)

// Hooks receives one event per OKR write plus cascade fan-out sizes.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	// ObserveCascade records how many linked objectives one cascade step touched.
	ObserveCascade(name string, objectives int)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) ObserveCascade(string, int)                     {}

// metricsHooks forwards to the prometheus collectors in observability.Metrics.
type metricsHooks struct {
	m *observability.Metrics
}

func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(opLabel(name), strings.TrimSpace(status), dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(opLabel(name)) }

func (h metricsHooks) IncRetry(name string) { h.m.IncAggregateRetry(opLabel(name)) }

func (h metricsHooks) ObserveCascade(name string, objectives int) {
	if objectives < 0 {
		objectives = 0
	}
	h.m.ObserveCascadeFanout(opLabel(name), objectives)
}

func opLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "okr.unknown"
	}
	return name
}
