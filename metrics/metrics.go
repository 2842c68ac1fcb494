package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the census tracker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	DistrictsRegistered prometheus.Counter
	CensusWrites        prometheus.Counter
	SummariesServed     prometheus.Counter
	RegionalReports     prometheus.Counter
	DomainErrors        *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates a Metrics instance registered on reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DistrictsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "census_districts_registered_total",
			Help: "Total number of districts registered",
		}),
		CensusWrites: f.NewCounter(prometheus.CounterOpts{
			Name: "census_record_writes_total",
			Help: "Total number of census record inserts and replacements",
		}),
		SummariesServed: f.NewCounter(prometheus.CounterOpts{
			Name: "census_summaries_total",
			Help: "Total number of district summaries computed",
		}),
		RegionalReports: f.NewCounter(prometheus.CounterOpts{
			Name: "census_regional_reports_total",
			Help: "Total number of regional reports computed",
		}),
		DomainErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "census_errors_total",
			Help: "Errors returned by core operations, by kind",
		}, []string{"op", "kind"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "census_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route", "status"}),
	}
}

// IncrementDistrictRegistered records a successful registration.
func (m *Metrics) IncrementDistrictRegistered() {
	if m == nil {
		return
	}
	m.DistrictsRegistered.Inc()
}

// IncrementCensusWrite records a successful census upsert.
func (m *Metrics) IncrementCensusWrite() {
	if m == nil {
		return
	}
	m.CensusWrites.Inc()
}

// IncrementSummary records a computed summary.
func (m *Metrics) IncrementSummary() {
	if m == nil {
		return
	}
	m.SummariesServed.Inc()
}

// IncrementRegionalReport records a computed regional report.
func (m *Metrics) IncrementRegionalReport() {
	if m == nil {
		return
	}
	m.RegionalReports.Inc()
}

// ObserveError counts an error returned by op.
func (m *Metrics) ObserveError(op, kind string) {
	if m == nil || kind == "" {
		return
	}
	m.DomainErrors.WithLabelValues(op, kind).Inc()
}

// ObserveRequest records the duration of an HTTP request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(method, route, status string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}
