package colindex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors an index reports to. A nil *Metrics
// records nothing.
type Metrics struct {
	searches      *prometheus.CounterVec
	latency       prometheus.Histogram
	mergedRows    prometheus.Counter
	pureNegations prometheus.Counter
}

// NewMetrics registers the index collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		searches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "colindex_searches_total",
				Help: "Total number of searches by outcome",
			},
			[]string{"outcome"},
		),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "colindex_search_duration_seconds",
			Help:    "Search latency including the merge",
			Buckets: prometheus.DefBuckets,
		}),
		mergedRows: f.NewCounter(prometheus.CounterOpts{
			Name: "colindex_merged_rows_total",
			Help: "Total number of partition rows fed to the merge",
		}),
		pureNegations: f.NewCounter(prometheus.CounterOpts{
			Name: "colindex_pure_negations_total",
			Help: "Total number of boolean conditions repaired with an implicit match-all",
		}),
	}
}

func (m *Metrics) observeSearch(took time.Duration, merged, pureNegations int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.latency.Observe(took.Seconds())
	m.mergedRows.Add(float64(merged))
	m.pureNegations.Add(float64(pureNegations))
}
