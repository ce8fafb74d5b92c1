package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics records chain event ingestion outcomes.
type IngestMetrics struct {
	processed  *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	casRetries prometheus.Counter
	orphaned   prometheus.Counter
	evicted    prometheus.Counter
}

// NewIngestMetrics registers the ingestion metrics on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chain_events_processed_total",
		Help: "Chain events processed, labeled by event type and outcome.",
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chain_event_apply_seconds",
		Help:    "Time spent applying a single chain event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	casRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chain_event_version_conflicts_total",
		Help: "Optimistic concurrency conflicts retried during apply.",
	})
	orphaned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chain_events_orphaned_total",
		Help: "Approval events buffered because their update request was missing.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chain_events_dlq_total",
		Help: "Events evicted to the dead letter table.",
	})
	reg.MustRegister(processed, duration, casRetries, orphaned, evicted)
	return &IngestMetrics{
		processed:  processed,
		duration:   duration,
		casRetries: casRetries,
		orphaned:   orphaned,
		evicted:    evicted,
	}
}

// IncProcessed counts one processed event with its outcome label.
func (m *IngestMetrics) IncProcessed(eventType, outcome string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveApply records how long one event took to apply.
func (m *IngestMetrics) ObserveApply(eventType string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncVersionConflict counts one CAS retry.
func (m *IngestMetrics) IncVersionConflict() {
	if m == nil || m.casRetries == nil {
		return
	}
	m.casRetries.Inc()
}

// IncOrphaned counts one buffered approval.
func (m *IngestMetrics) IncOrphaned() {
	if m == nil || m.orphaned == nil {
		return
	}
	m.orphaned.Inc()
}

// IncEvicted counts one DLQ eviction.
func (m *IngestMetrics) IncEvicted() {
	if m == nil || m.evicted == nil {
		return
	}
	m.evicted.Inc()
}
