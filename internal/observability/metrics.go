package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "observatory"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// client core and the report relay.
type Metrics struct {
	// Platform API.
	APIRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,validation,auth,not_found,network}
	APIDuration *prometheus.HistogramVec // labels: endpoint

	// Observation lifecycle.
	Submissions          *prometheus.CounterVec // labels: outcome={created,invalid,in_flight,failed}
	Votes                *prometheus.CounterVec // labels: direction, outcome={confirmed,rolled_back}
	AchievementFallbacks *prometheus.CounterVec // labels: kind
	ActivityPublished    *prometheus.CounterVec // labels: type, outcome={success,error}

	// Relay.
	ReportsConsumed   prometheus.Counter
	ReportsSubmitted  prometheus.Counter
	ReportsInvalid    prometheus.Counter
	ReportsDuplicate  prometheus.Counter
	RelayRunning      prometheus.Gauge
	BatchSize         prometheus.Histogram
	BatchDuration     prometheus.Histogram
	CatalogCache      *prometheus.CounterVec // labels: result={hit,miss,error}
	CatalogBodiesSeen prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Platform API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Platform API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Observation submissions by outcome.",
		}, []string{"outcome"}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes cast by direction and outcome.",
		}, []string{"direction", "outcome"}),
		AchievementFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievement_fallbacks_total",
			Help:      "Achievements rendered with the fallback badge because their kind has no display mapping.",
		}, []string{"kind"}),
		ActivityPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Activity events published by type and outcome.",
		}, []string{"type", "outcome"}),
		ReportsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_consumed_total",
			Help:      "Total observation reports read from the report topic.",
		}),
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_submitted_total",
			Help:      "Total reports turned into observations on the platform.",
		}),
		ReportsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_invalid_total",
			Help:      "Total reports skipped because they did not form a complete draft.",
		}),
		ReportsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_duplicate_total",
			Help:      "Total reports skipped because they were already submitted.",
		}),
		RelayRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_running",
			Help:      "1 when the relay is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of reports per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-validate-submit cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CatalogCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Celestial body catalog cache lookups by result.",
		}, []string{"result"}),
		CatalogBodiesSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_bodies",
			Help:      "Number of celestial bodies in the loaded catalog.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when place search and marker labels use geocoding, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.APIRequests,
		m.APIDuration,
		m.Submissions,
		m.Votes,
		m.AchievementFallbacks,
		m.ActivityPublished,
		m.ReportsConsumed,
		m.ReportsSubmitted,
		m.ReportsInvalid,
		m.ReportsDuplicate,
		m.RelayRunning,
		m.BatchSize,
		m.BatchDuration,
		m.CatalogCache,
		m.CatalogBodiesSeen,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
