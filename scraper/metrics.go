package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RecordsTotal    prometheus.Counter
	PagesTotal      prometheus.Counter
	DuplicatesTotal prometheus.Counter
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP page requests by outcome phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for results page requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_extracted_total",
			Help: "Total number of draw records extracted from pages.",
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_crawled_total",
			Help: "Total number of pages that produced records.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_duplicate_records_total",
			Help: "Total number of records dropped by the merge as duplicates.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of page fetch retries.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of failed fetch attempts by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, records, pages, duplicates, retries, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RecordsTotal:    records,
		PagesTotal:      pages,
		DuplicatesTotal: duplicates,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRecords counts records extracted from one page.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
	m.PagesTotal.Inc()
}

// AddDuplicates counts records dropped by the merge.
func (m *Metrics) AddDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesTotal.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
