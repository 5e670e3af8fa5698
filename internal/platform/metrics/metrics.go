package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconciliation engine. All methods
// are nil-receiver safe so tests can pass a nil *Metrics.
type Metrics struct {
	// Sync outcomes by source kind and action (created, reopened, forced, skipped, failed)
	SyncOutcome *prometheus.CounterVec

	// Lifecycle transitions by target state
	Transitions *prometheus.CounterVec

	// Propagation intents drained, labeled by result (ok, retried, failed)
	Propagation *prometheus.CounterVec

	// Hotspot detector runs and clusters found
	HotspotRuns     prometheus.Counter
	HotspotClusters prometheus.Counter
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		SyncOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_sync_outcomes_total",
			Help: "Source-to-case sync outcomes by source kind and action",
		}, []string{"kind", "action"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_case_transitions_total",
			Help: "Applied case state transitions by target state",
		}, []string{"state"}),

		Propagation: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_propagation_total",
			Help: "Back-propagation intents drained by result",
		}, []string{"result"}),

		HotspotRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_hotspot_runs_total",
			Help: "Hotspot detector invocations",
		}),

		HotspotClusters: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_hotspot_clusters_total",
			Help: "Clusters emitted by the hotspot detector",
		}),
	}
}

// IncrementSync records one sync outcome.
func (m *Metrics) IncrementSync(kind, action string) {
	if m != nil {
		m.SyncOutcome.WithLabelValues(kind, action).Inc()
	}
}

// IncrementTransition records one applied state transition.
func (m *Metrics) IncrementTransition(state string) {
	if m != nil {
		m.Transitions.WithLabelValues(state).Inc()
	}
}

// IncrementPropagation records one drained propagation intent.
func (m *Metrics) IncrementPropagation(result string) {
	if m != nil {
		m.Propagation.WithLabelValues(result).Inc()
	}
}

// IncrementHotspot records one detector run and the clusters it produced.
func (m *Metrics) IncrementHotspot(clusters int) {
	if m != nil {
		m.HotspotRuns.Inc()
		m.HotspotClusters.Add(float64(clusters))
	}
}
