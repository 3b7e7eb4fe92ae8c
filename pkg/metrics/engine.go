package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records reconciliation activity for the scan and weight pipelines.
type EngineMetrics struct {
	scanDuration      *prometheus.HistogramVec
	scanOutcomes      *prometheus.CounterVec
	weightUpdates     prometheus.Counter
	cooldownEvictions prometheus.Counter
	broadcastFailures *prometheus.CounterVec
	consumerRedeliver *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	scanDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scan_duration_seconds",
		Help:    "Duration of tag scan reconciliation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	scanOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_outcomes_total",
		Help: "Tag scan reconciliation outcomes.",
	}, []string{"outcome"})
	weightUpdates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weight_updates_total",
		Help: "Processed load cell weight readings.",
	})
	cooldownEvictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cooldown_evictions_total",
		Help: "Stale entries purged from the scan cooldown cache.",
	})
	broadcastFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_failures_total",
		Help: "Failed best-effort event broadcasts.",
	}, []string{"event"})
	consumerRedeliver := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_redeliveries_total",
		Help: "Messages nacked back to the broker for redelivery.",
	}, []string{"consumer"})
	reg.MustRegister(scanDuration, scanOutcomes, weightUpdates, cooldownEvictions, broadcastFailures, consumerRedeliver)
	return &EngineMetrics{
		scanDuration:      scanDuration,
		scanOutcomes:      scanOutcomes,
		weightUpdates:     weightUpdates,
		cooldownEvictions: cooldownEvictions,
		broadcastFailures: broadcastFailures,
		consumerRedeliver: consumerRedeliver,
	}
}

// ObserveScan records one reconciled tag scan with its outcome and duration.
func (m *EngineMetrics) ObserveScan(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	label := normalizeLabel(outcome)
	if m.scanOutcomes != nil {
		m.scanOutcomes.WithLabelValues(label).Inc()
	}
	if m.scanDuration != nil {
		m.scanDuration.WithLabelValues(label).Observe(duration.Seconds())
	}
}

// IncWeightUpdate counts one processed weight reading.
func (m *EngineMetrics) IncWeightUpdate() {
	if m == nil || m.weightUpdates == nil {
		return
	}
	m.weightUpdates.Inc()
}

// AddCooldownEvictions counts entries dropped during a cooldown cache purge.
func (m *EngineMetrics) AddCooldownEvictions(n int) {
	if m == nil || m.cooldownEvictions == nil || n <= 0 {
		return
	}
	m.cooldownEvictions.Add(float64(n))
}

// IncBroadcastFailure counts a failed best-effort broadcast for the named event.
func (m *EngineMetrics) IncBroadcastFailure(event string) {
	if m == nil || m.broadcastFailures == nil {
		return
	}
	m.broadcastFailures.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncRedelivery counts a message nacked back to the broker by the named consumer.
func (m *EngineMetrics) IncRedelivery(consumer string) {
	if m == nil || m.consumerRedeliver == nil {
		return
	}
	m.consumerRedeliver.WithLabelValues(normalizeLabel(consumer)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
