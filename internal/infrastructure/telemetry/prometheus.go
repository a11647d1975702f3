package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus metrics served on /metrics.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec
	InFlight        prometheus.Gauge

	Logins           *prometheus.CounterVec
	ContextSwitches  *prometheus.CounterVec
	CascadeChains    prometheus.Gauge
	ReportsRendered  *prometheus.CounterVec
	ResourceFailures *prometheus.CounterVec
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "HTTP requests handled by the console",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: HTTPDurationBuckets,
		}, []string{"method", "route"}),
		ResponseSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}, []string{"method", "route"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "console_http_requests_in_flight",
			Help: "HTTP requests being served",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		ContextSwitches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_context_switches_total",
			Help: "Company/role context switches by outcome",
		}, []string{"outcome"}),
		CascadeChains: f.NewGauge(prometheus.GaugeOpts{
			Name: "console_cascade_chains",
			Help: "Dependent-selection chains held in memory",
		}),
		ReportsRendered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_reports_total",
			Help: "Report renders by report and outcome",
		}, []string{"report", "outcome"}),
		ResourceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_resource_failures_total",
			Help: "Failed resource operations by resource and operation",
		}, []string{"resource", "operation"}),
	}
}

// ObserveHTTP records one served request. route is the matched route
// template, never the raw path.
func (r *Registry) ObserveHTTP(method, route string, status int, d time.Duration, size int) {
	if route == "" {
		route = "unmatched"
	}
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	if size >= 0 {
		r.ResponseSize.WithLabelValues(method, route).Observe(float64(size))
	}
}

// IncInFlight marks a request as started.
func (r *Registry) IncInFlight() { r.InFlight.Inc() }

// DecInFlight marks a request as finished.
func (r *Registry) DecInFlight() { r.InFlight.Dec() }

// Outcome labels for counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RecordLogin counts a login attempt.
func (r *Registry) RecordLogin(outcome string) {
	r.Logins.WithLabelValues(outcome).Inc()
}

// RecordContextSwitch counts a context switch.
func (r *Registry) RecordContextSwitch(outcome string) {
	r.ContextSwitches.WithLabelValues(outcome).Inc()
}

// RecordReport counts a report render.
func (r *Registry) RecordReport(report, outcome string) {
	r.ReportsRendered.WithLabelValues(report, outcome).Inc()
}

// RecordResourceFailure counts a failed resource operation.
func (r *Registry) RecordResourceFailure(resource, operation string) {
	r.ResourceFailures.WithLabelValues(resource, operation).Inc()
}

// SetCascadeChains reports how many chains are held in memory.
func (r *Registry) SetCascadeChains(n int) {
	r.CascadeChains.Set(float64(n))
}
