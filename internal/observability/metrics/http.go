package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal         *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	analysisTotal        *prometheus.CounterVec
	driveImportsTotal    *prometheus.CounterVec
	uploadBytes          *prometheus.HistogramVec
	analysisDuration     *prometheus.HistogramVec
	analysisOutputLength *prometheus.HistogramVec
	deletesTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docudesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docudesk",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "intake",
			Name:      "uploads_total",
			Help:      "Total accepted document uploads.",
		},
		[]string{"service", "run_ocr", "run_analysis"},
	)
	uploadRejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "intake",
			Name:      "uploads_rejected_total",
			Help:      "Total rejected uploads by reason.",
		},
		[]string{"service", "reason"},
	)
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Total synchronous analysis requests by status.",
		},
		[]string{"service", "status"},
	)
	driveImportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "intake",
			Name:      "drive_imports_total",
			Help:      "Total documents imported from remote drive by status.",
		},
		[]string{"service", "status"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docudesk",
			Subsystem: "intake",
			Name:      "upload_bytes",
			Help:      "Distribution of accepted upload sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"service"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docudesk",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Synchronous analysis duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	analysisOutputLength := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docudesk",
			Subsystem: "analysis",
			Name:      "output_chars",
			Help:      "Distribution of generated analysis length in characters.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"service"},
	)
	deletesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docudesk",
			Subsystem: "library",
			Name:      "documents_deleted_total",
			Help:      "Documents removed together with their dependent rows.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadRejectedTotal,
		analysisTotal,
		driveImportsTotal,
		uploadBytes,
		analysisDuration,
		analysisOutputLength,
		deletesTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		uploadsTotal:         uploadsTotal,
		uploadRejectedTotal:  uploadRejectedTotal,
		analysisTotal:        analysisTotal,
		driveImportsTotal:    driveImportsTotal,
		uploadBytes:          uploadBytes,
		analysisDuration:     analysisDuration,
		analysisOutputLength: analysisOutputLength,
		deletesTotal:         deletesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/documents/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/v1/documents/")
	switch {
	case strings.HasSuffix(rest, "/ocr"):
		return "/v1/documents/{document_id}/ocr"
	case strings.HasSuffix(rest, "/analyze"):
		return "/v1/documents/{document_id}/analyze"
	case strings.HasSuffix(rest, "/analyses"):
		return "/v1/documents/{document_id}/analyses"
	default:
		return "/v1/documents/{document_id}"
	}
}

func (m *HTTPServerMetrics) RecordUpload(service string, runOCR, runAnalysis bool, sizeBytes int64) {
	m.uploadsTotal.WithLabelValues(service, strconv.FormatBool(runOCR), strconv.FormatBool(runAnalysis)).Inc()
	m.uploadBytes.WithLabelValues(service).Observe(float64(sizeBytes))
}

func (m *HTTPServerMetrics) RecordUploadRejected(service, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.uploadRejectedTotal.WithLabelValues(service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordAnalysis(service string, duration time.Duration, outputChars int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.analysisTotal.WithLabelValues(service, status).Inc()
	if err == nil {
		m.analysisDuration.WithLabelValues(service).Observe(duration.Seconds())
		m.analysisOutputLength.WithLabelValues(service).Observe(float64(outputChars))
	}
}

func (m *HTTPServerMetrics) RecordDriveImport(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.driveImportsTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordDelete(service string) {
	m.deletesTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
