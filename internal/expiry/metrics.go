package expiry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sweep collectors. A nil *Metrics records nothing.
type Metrics struct {
	Expired           prometheus.Counter
	PartitionFailures prometheus.Counter
	Duration          prometheus.Histogram
}

// NewMetrics registers the sweep collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "consent_handle_expired_total",
			Help: "Consent handles moved from PENDING to REQ_EXPIRED",
		}),
		PartitionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "consent_sweep_partition_failures_total",
			Help: "Tenant partitions skipped by the expiry sweep",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "consent_sweep_duration_seconds",
			Help:    "Duration of one expiry sweep across all tenants",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeSweep(result SweepResult, start time.Time) {
	if m == nil {
		return
	}
	m.Expired.Add(float64(result.Total))
	m.PartitionFailures.Add(float64(len(result.Failed)))
	m.Duration.Observe(time.Since(start).Seconds())
}
