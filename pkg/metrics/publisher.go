package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outbox relay throughput.
type PublisherMetrics struct {
	duration     *prometheus.HistogramVec
	attempts     *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
}

// NewPublisherMetrics registers on reg; a nil reg yields a no-op recorder.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	m := &PublisherMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outbox_publish_duration_seconds",
			Help:    "Time spent waiting for the broker to ack one event.",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_publish_attempts_total",
			Help: "Outbox publish attempts by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_dead_lettered_total",
			Help: "Outbox events moved to outbox_dlq by reason.",
		}, []string{"event_type", "reason"}),
	}
	reg.MustRegister(m.duration, m.attempts, m.deadLettered)
	return m
}

func (p *PublisherMetrics) ObservePublish(eventType string, took time.Duration, err error) {
	if p == nil || p.duration == nil {
		return
	}
	label := normalizeLabel(eventType)
	p.duration.WithLabelValues(label).Observe(took.Seconds())
	p.attempts.WithLabelValues(label, outcome(err)).Inc()
}

func (p *PublisherMetrics) IncDeadLetter(eventType, reason string) {
	if p == nil || p.deadLettered == nil {
		return
	}
	p.deadLettered.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}
