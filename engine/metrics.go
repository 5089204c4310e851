package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of the matching engine. A nil *Metrics records nothing.
type Metrics struct {
	Sweeps          prometheus.Counter
	Rounds          prometheus.Counter
	Proposals       prometheus.Counter
	Evictions       prometheus.Counter
	LastSweepWeight prometheus.Gauge
	SweepDuration   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Sweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "bmatch_sweeps_total",
			Help: "Sweep values solved",
		}),
		Rounds: factory.NewCounter(prometheus.CounterOpts{
			Name: "bmatch_rounds_total",
			Help: "Proposal rounds run across all sweeps",
		}),
		Proposals: factory.NewCounter(prometheus.CounterOpts{
			Name: "bmatch_proposals_accepted_total",
			Help: "Proposals accepted by a neighbour",
		}),
		Evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "bmatch_evictions_total",
			Help: "Accepted proposals evicted by a better one",
		}),
		LastSweepWeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bmatch_last_sweep_weight",
			Help: "Total matched weight of the most recent sweep",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bmatch_sweep_duration_seconds",
			Help:    "Time to converge one sweep value",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
		}),
	}
}

func (m *Metrics) observeSweep(stats SweepStats, total int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Sweeps.Inc()
	m.Rounds.Add(float64(stats.Rounds))
	m.Proposals.Add(float64(stats.Proposals))
	m.Evictions.Add(float64(stats.Evictions))
	m.LastSweepWeight.Set(float64(total))
	m.SweepDuration.Observe(elapsed.Seconds())
}
