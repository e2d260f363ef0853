package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_tracker"

// Metrics holds the Prometheus collectors for the tracker service.
type Metrics struct {
	FetchRequests   *prometheus.CounterVec // labels: outcome={success,empty,error,invalid}
	FetchDuration   prometheus.Histogram
	FetchesInFlight prometheus.Gauge

	RecordWaits      *prometheus.CounterVec // labels: outcome={resolved,not_found,no_address,timeout,cancelled}
	GeolocationFails *prometheus.CounterVec // labels: reason

	ReportDispatches *prometheus.CounterVec // labels: target={contacts,all_users}, outcome={success,error}

	Sessions       prometheus.Gauge
	SessionsPruned prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.FetchesInFlight,
		m.RecordWaits,
		m.GeolocationFails,
		m.ReportDispatches,
		m.Sessions,
		m.SessionsPruned,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Weather fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Observation service call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FetchesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetches_in_flight",
			Help:      "Weather fetches currently waiting on the observation service.",
		}),
		RecordWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_waits_total",
			Help:      "Bound record address waits by outcome.",
		}, []string{"outcome"}),
		GeolocationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geolocation_failures_total",
			Help:      "Device geolocation failures by reason.",
		}, []string{"reason"}),
		ReportDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_dispatches_total",
			Help:      "Weather report emails by target and outcome.",
		}, []string{"target", "outcome"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Tracker sessions currently held in memory.",
		}),
		SessionsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_pruned_total",
			Help:      "Tracker sessions removed by retention.",
		}),
	}
}
