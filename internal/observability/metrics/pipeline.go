package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

// PipelineMetrics tracks the upload pipeline. The service label is bound at
// construction because every observation comes from the same process.
type PipelineMetrics struct {
	service  string
	registry *prometheus.Registry

	filesSubmittedTotal *prometheus.CounterVec
	itemsTotal          *prometheus.CounterVec
	itemDuration        *prometheus.HistogramVec
	itemsInFlight       prometheus.Gauge
	queueDepth          prometheus.Gauge
	retriesTotal        prometheus.Counter
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	filesSubmittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellspring",
			Subsystem: "ingest",
			Name:      "files_submitted_total",
			Help:      "Total files submitted for upload by admission outcome.",
		},
		[]string{"service", "outcome"},
	)
	itemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellspring",
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Total finished upload items by status and failure category.",
		},
		[]string{"service", "status", "category"},
	)
	itemDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wellspring",
			Subsystem: "ingest",
			Name:      "item_duration_seconds",
			Help:      "Upload item processing duration in seconds by final status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	itemsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wellspring",
			Subsystem: "ingest",
			Name:      "items_in_flight",
			Help:      "Number of upload items currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wellspring",
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Number of admitted items waiting for a processing slot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retriesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wellspring",
			Subsystem: "ingest",
			Name:      "retries_total",
			Help:      "Total retry requests for failed upload items.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		filesSubmittedTotal,
		itemsTotal,
		itemDuration,
		itemsInFlight,
		queueDepth,
		retriesTotal,
	)

	return &PipelineMetrics{
		service:             service,
		registry:            registry,
		filesSubmittedTotal: filesSubmittedTotal,
		itemsTotal:          itemsTotal,
		itemDuration:        itemDuration,
		itemsInFlight:       itemsInFlight,
		queueDepth:          queueDepth,
		retriesTotal:        retriesTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) FileSubmitted(accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.filesSubmittedTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *PipelineMetrics) ItemStarted() {
	m.itemsInFlight.Inc()
}

func (m *PipelineMetrics) ItemFinished(status domain.Status, category domain.Category, duration time.Duration) {
	m.itemsInFlight.Dec()
	m.itemsTotal.WithLabelValues(m.service, string(status), categoryLabel(category)).Inc()
	m.itemDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RetryRequested() {
	m.retriesTotal.Inc()
}

func (m *PipelineMetrics) QueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func categoryLabel(category domain.Category) string {
	if category == "" {
		return "none"
	}
	return string(category)
}
