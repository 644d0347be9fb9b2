package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindNotification = "notification"
	kindAudit        = "audit"

	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Metrics holds the dispatch collectors. A nil *Metrics records nothing.
type Metrics struct {
	Tasks           *prometheus.CounterVec
	QueueDepth      prometheus.Gauge
	Dropped         *prometheus.CounterVec
	DeliverySeconds *prometheus.HistogramVec
}

// NewMetrics registers the dispatch collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_dispatch_tasks_total",
			Help: "Dispatch tasks processed, by kind and outcome",
		}, []string{"kind", "outcome"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "consent_dispatch_queue_depth",
			Help: "Dispatch tasks waiting for a worker",
		}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_dispatch_dropped_total",
			Help: "Dispatch tasks dropped because the queue stayed full",
		}, []string{"kind"}),
		DeliverySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consent_dispatch_delivery_seconds",
			Help:    "Duration of outbound notification and audit calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
	}
}

func (m *Metrics) observeTask(kind, outcome string) {
	if m == nil {
		return
	}
	m.Tasks.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) observeDelivery(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.DeliverySeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) incrementDropped(kind string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(kind).Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
