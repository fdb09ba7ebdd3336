package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "freshroute"

// LifecycleMetrics counts the stock lifecycle decisions and sweep outcomes.
type LifecycleMetrics struct {
	overrides   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	overrides := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_lifecycle_overrides_total",
		Help:      "Stock writes where a lifecycle rule overrode the caller's fields.",
	}, []string{"rule"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_sweep_records_total",
		Help:      "Records handled by the expiration sweeper, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(overrides, transitions)
	return &LifecycleMetrics{overrides: overrides, transitions: transitions}
}

// IncOverride counts a rule override.
func (m *LifecycleMetrics) IncOverride(rule string) {
	if m == nil || m.overrides == nil {
		return
	}
	m.overrides.WithLabelValues(normalizeLabel(rule)).Inc()
}

// AddSweepTransitioned adds records discarded by a sweep.
func (m *LifecycleMetrics) AddSweepTransitioned(n int) {
	m.addSweep("transitioned", n)
}

// AddSweepDeferred adds records skipped because of lock contention.
func (m *LifecycleMetrics) AddSweepDeferred(n int) {
	m.addSweep("deferred", n)
}

// AddSweepFailed adds records whose sweep failed.
func (m *LifecycleMetrics) AddSweepFailed(n int) {
	m.addSweep("failed", n)
}

func (m *LifecycleMetrics) addSweep(outcome string, n int) {
	if m == nil || m.transitions == nil || n <= 0 {
		return
	}
	m.transitions.WithLabelValues(outcome).Add(float64(n))
}
