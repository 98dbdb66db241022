package clonotype

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports pipeline counters on its own registry.  A nil *Metrics
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	joins         *prometheus.CounterVec
	removedCells  *prometheus.CounterVec
	orbits        prometheus.Gauge
	whitelist     prometheus.Gauge
	stageDuration *prometheus.HistogramVec
}

// NewMetrics creates Metrics registered on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		joins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clonotype",
			Name:      "join_pairs_total",
			Help:      "Scored pairs of join units by outcome",
		}, []string{"outcome"}),
		removedCells: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clonotype",
			Name:      "removed_cells_total",
			Help:      "Cells recorded in fate by reason",
		}, []string{"reason"}),
		orbits: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "clonotype",
			Name:      "orbits",
			Help:      "Number of final orbits",
		}),
		whitelist: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "clonotype",
			Name:      "whitelist_contamination_percent",
			Help:      "Estimated false join rate",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clonotype",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// record exports the final counters of a run.
func (m *Metrics) record(s Stats, fate *Fate) {
	if m == nil {
		return
	}
	m.joins.WithLabelValues("accepted").Add(float64(s.Join.Accepted))
	m.joins.WithLabelValues("rejected").Add(float64(s.Join.Rejected))
	m.joins.WithLabelValues("error").Add(float64(s.Join.Errors))
	for reason, n := range fate.Counts() {
		m.removedCells.WithLabelValues(reason).Add(float64(n))
	}
	m.orbits.Set(float64(s.Orbits))
	m.whitelist.Set(s.Join.WhitelistContamination)
}
