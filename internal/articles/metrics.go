package articles

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "nordics"
	metricsSubsystem = "articles"
)

// Metrics are the article service counters.
type Metrics struct {
	CacheLookups  *prometheus.CounterVec
	Fallbacks     *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics registers the article metrics on reg, or on the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "cache_lookups_total",
				Help:      "Article cache lookups by key prefix and result",
			},
			[]string{"prefix", "result"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "fallbacks_total",
				Help:      "Degraded list responses by fallback stage",
			},
			[]string{"stage"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "query_duration_seconds",
				Help:      "Duration of article queries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"query"},
		),
	}
}

func (m *Metrics) lookup(prefix string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(prefix, result).Inc()
}
