package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wsspider"

// Metrics holds the spider's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts  prometheus.Counter
	fetchFailures  *prometheus.CounterVec
	pagesFetched   prometheus.Counter
	recordsEmitted prometheus.Counter
	linksVisited   prometheus.Counter
	jobsCompleted  prometheus.Counter
	running        prometheus.Gauge
}

// NewMetrics registers the spider metrics on a new registry, together
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetchAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "The total number of page fetch attempts, retries included",
		}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "The total number of failed fetch attempts",
		}, []string{"kind"}), // e.g. 'network', 'timeout', 'http'
		pagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "The total number of result pages fetched successfully",
		}),
		recordsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "The total number of records sent to the collector",
		}),
		linksVisited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_visited_total",
			Help:      "The total number of refine links crawled",
		}),
		jobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "The total number of jobs finished",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while a crawl is in progress",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FetchAttempt implements crawler.Metrics.
func (m *Metrics) FetchAttempt() {
	m.fetchAttempts.Inc()
}

// FetchFailed implements crawler.Metrics.
func (m *Metrics) FetchFailed(kind string) {
	m.fetchFailures.WithLabelValues(kind).Inc()
}

// PageFetched implements crawler.Metrics.
func (m *Metrics) PageFetched() {
	m.pagesFetched.Inc()
}

// RecordsEmitted implements crawler.Metrics.
func (m *Metrics) RecordsEmitted(n int) {
	m.recordsEmitted.Add(float64(n))
}

// LinkVisited implements crawler.Metrics.
func (m *Metrics) LinkVisited() {
	m.linksVisited.Inc()
}

// JobCompleted implements crawler.Metrics.
func (m *Metrics) JobCompleted() {
	m.jobsCompleted.Inc()
}

// SetRunning implements crawler.Metrics.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.running.Set(1)
		return
	}
	m.running.Set(0)
}
