package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the discovery pipeline: which source
// served each fetch, how often the authoritative path degraded, and how
// many signals were published.
type Metrics struct {
	FetchesTotal   *prometheus.CounterVec
	FallbacksTotal prometheus.Counter
	FailedDays     prometheus.Counter
	SignalsTotal   prometheus.Counter
}

// New creates a Metrics instance registered on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_fetches_total",
			Help: "Registry fetches by serving source",
		}, []string{"source"}),
		FallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_fallbacks_total",
			Help: "Fetches that degraded from the authoritative API to web search",
		}),
		FailedDays: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_failed_days_total",
			Help: "Per-day fetches that failed on both sources",
		}),
		SignalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "registry_signals_total",
			Help: "New-registration signals published",
		}),
	}
}

// ObserveFetch records one completed fetch for the given source.
func (m *Metrics) ObserveFetch(source string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(source).Inc()
}

// ObserveFallback records a fetch that degraded to the secondary source.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.FallbacksTotal.Inc()
}

// ObserveFailedDay records a day that produced no results on either source.
func (m *Metrics) ObserveFailedDay() {
	if m == nil {
		return
	}
	m.FailedDays.Inc()
}

// ObserveSignal records one published discovery signal.
func (m *Metrics) ObserveSignal() {
	if m == nil {
		return
	}
	m.SignalsTotal.Inc()
}
