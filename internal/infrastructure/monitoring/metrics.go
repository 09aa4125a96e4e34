package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one process. Each instance
// owns its registry so independent instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP host metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Dispatch metrics
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	DispatchErrors   *prometheus.CounterVec
	RoutesRegistered prometheus.Gauge

	// Job metrics
	JobsPublished prometheus.Counter
	JobsProcessed *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON status endpoint
type Snapshot struct {
	TotalDispatches int64   `json:"total_dispatches"`
	TotalErrors     int64   `json:"total_errors"`
	TotalDuration   float64 `json:"total_duration_seconds"`
	Uptime          float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics set with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method"},
		),

		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_dispatch_total",
				Help: "Total number of dispatched requests by matched route",
			},
			[]string{"method", "route", "status"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_dispatch_duration_seconds",
				Help:    "Dispatch duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		DispatchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_dispatch_errors_total",
				Help: "Total number of dispatch errors by kind",
			},
			[]string{"kind"},
		),
		RoutesRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "conduit_routes_registered",
				Help: "Number of registered routes",
			},
		),

		JobsPublished: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "conduit_jobs_published_total",
				Help: "Total number of background jobs published",
			},
		),
		JobsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_jobs_processed_total",
				Help: "Total number of background jobs run",
			},
			[]string{"command", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conduit_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"command"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "conduit_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records a request served by the host
func (m *Metrics) RecordHTTPRequest(method, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method).Observe(float64(respSize))
}

// RecordDispatch records one dispatch. route is the matched pattern or
// "unmatched".
func (m *Metrics) RecordDispatch(method, route, status string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(method, route, status).Inc()
	m.DispatchDuration.WithLabelValues(method, route).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalDispatches++
	m.snapshot.TotalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordDispatchError records a failed dispatch by exception kind
func (m *Metrics) RecordDispatchError(kind string) {
	m.DispatchErrors.WithLabelValues(kind).Inc()
}

// SetRoutes sets the number of registered routes
func (m *Metrics) SetRoutes(count int) {
	m.RoutesRegistered.Set(float64(count))
}

// IncJobsPublished counts a published job
func (m *Metrics) IncJobsPublished() {
	m.JobsPublished.Inc()
}

// RecordJob records a finished background job
func (m *Metrics) RecordJob(command, status string, duration time.Duration) {
	m.JobsProcessed.WithLabelValues(command, status).Inc()
	m.JobDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// Snapshot returns the running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.Uptime = time.Since(m.startTime).Seconds()
	return s
}
