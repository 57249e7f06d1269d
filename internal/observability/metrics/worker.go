package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	stageTotal      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageInFlight   prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	notifyFailTotal *prometheus.CounterVec
	cascadeTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "worker",
			Name:      "stage_total",
			Help:      "Total executed pipeline stages by stage and status.",
		},
		[]string{"service", "stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docudesk",
			Subsystem: "worker",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds by stage and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage", "status"},
	)
	stageInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docudesk",
			Subsystem: "worker",
			Name:      "stage_in_flight",
			Help:      "Number of in-flight pipeline stages.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docudesk",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between task enqueue and stage start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	notifyFailTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "worker",
			Name:      "notification_failures_total",
			Help:      "Best-effort notification deliveries that failed (swallowed).",
		},
		[]string{"service", "event"},
	)
	cascadeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "worker",
			Name:      "cascade_total",
			Help:      "Analysis cascades launched after OCR success by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(stageTotal, stageDuration, stageInFlight, queueLag, notifyFailTotal, cascadeTotal)

	return &WorkerMetrics{
		registry:        registry,
		stageTotal:      stageTotal,
		stageDuration:   stageDuration,
		stageInFlight:   stageInFlight,
		queueLag:        queueLag,
		notifyFailTotal: notifyFailTotal,
		cascadeTotal:    cascadeTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartStage() {
	m.stageInFlight.Inc()
}

func (m *WorkerMetrics) FinishStage(service, stage string, duration time.Duration, err error) {
	m.stageInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.stageTotal.WithLabelValues(service, stage, status).Inc()
	m.stageDuration.WithLabelValues(service, stage, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordNotificationFailure(service, event string) {
	if event == "" {
		event = "unknown"
	}
	m.notifyFailTotal.WithLabelValues(service, event).Inc()
}

func (m *WorkerMetrics) RecordCascade(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.cascadeTotal.WithLabelValues(service, status).Inc()
}
