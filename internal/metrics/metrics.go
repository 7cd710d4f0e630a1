package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
)

const namespace = "poi"

// Metrics holds the collection engine's Prometheus collectors and implements
// engine.Recorder.
type Metrics struct {
	ProviderCalls  *prometheus.CounterVec
	POIsUpserted   *prometheus.CounterVec
	Ticks          *prometheus.CounterVec
	TickRequests   prometheus.Histogram
	TickDuration   prometheus.Histogram
	ItemsProcessed prometheus.Counter
	JobsStarted    prometheus.Counter
	JobTransitions *prometheus.CounterVec
}

var _ engine.Recorder = (*Metrics)(nil)

// New registers every collector on reg. Pass a fresh registry in tests to
// avoid duplicate registration on the default one.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Places provider calls issued, by operation and outcome",
		}, []string{"op", "outcome"}),
		POIsUpserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upserted_total",
			Help:      "Qualified places written to both stores, by category",
		}, []string{"category"}),
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Ticks executed, by stop reason",
		}, []string{"stop_reason"}),
		TickRequests: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_requests",
			Help:      "Provider requests used per tick",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a tick",
			Buckets:   prometheus.DefBuckets,
		}),
		ItemsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_items_processed_total",
			Help:      "Queue items that reached done or failed",
		}),
		JobsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Collection jobs created",
		}),
		JobTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transitions_total",
			Help:      "Job state changes, by target state",
		}, []string{"state"}),
	}
}

func (m *Metrics) ProviderCall(op, outcome string) {
	m.ProviderCalls.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Upserted(category string) {
	m.POIsUpserted.WithLabelValues(category).Inc()
}

func (m *Metrics) TickCompleted(result *engine.TickResult) {
	if result == nil {
		return
	}
	m.Ticks.WithLabelValues(string(result.StopReason)).Inc()
	if result.StopReason == engine.StopNotRunnable {
		return
	}
	m.TickRequests.Observe(float64(result.RequestsUsed))
	m.TickDuration.Observe(result.Duration.Seconds())
	m.ItemsProcessed.Add(float64(result.ItemsProcessed))

	switch result.StopReason {
	case engine.StopPaused, engine.StopQueueExhausted:
		m.JobTransitions.WithLabelValues(string(result.Progress.State)).Inc()
	}
}

func (m *Metrics) JobStarted() {
	m.JobsStarted.Inc()
}

// JobTransition counts a state change made outside a tick, e.g. a manual pause.
func (m *Metrics) JobTransition(state string) {
	m.JobTransitions.WithLabelValues(state).Inc()
}
