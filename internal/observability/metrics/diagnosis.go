package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DiagnosisMetrics covers the classification and diagnosis pipeline. It
// implements Recorder.
type DiagnosisMetrics struct {
	Diagnoses        *prometheus.CounterVec
	Confidence       prometheus.Histogram
	Operations       *prometheus.CounterVec
	OperationTime    *prometheus.HistogramVec
	OperationErrors  *prometheus.CounterVec
	BackendRequests  *prometheus.CounterVec
	BackendLatency   prometheus.Histogram
	KnowledgeEntries prometheus.Gauge
	registry         *prometheus.Registry
}

// NewDiagnosisMetrics creates and registers the pipeline collectors.
func NewDiagnosisMetrics(registry *prometheus.Registry) (*DiagnosisMetrics, error) {
	m := &DiagnosisMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register diagnosis metrics: %w", err)
	}
	return m, nil
}

func (m *DiagnosisMetrics) initMetrics() {
	m.Diagnoses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropdoc_diagnoses_total",
		Help: "Diagnoses produced, by status and match kind.",
	}, []string{"status", "match"})

	m.Confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cropdoc_diagnosis_confidence_percent",
		Help:    "Confidence of the top prediction in percent.",
		Buckets: []float64{10, 25, 50, 60, 75, 90, 95, 99},
	})

	m.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropdoc_operations_total",
		Help: "Pipeline operations by outcome.",
	}, []string{"operation", "status"})

	m.OperationTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cropdoc_operation_duration_seconds",
		Help:    "Duration of pipeline operations.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"operation"})

	m.OperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropdoc_operation_errors_total",
		Help: "Failed pipeline operations by error category.",
	}, []string{"operation", "category"})

	m.BackendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropdoc_backend_requests_total",
		Help: "HTTP requests to inference backends by host and status code.",
	}, []string{"host", "code"})

	m.BackendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cropdoc_backend_request_duration_seconds",
		Help:    "Latency of inference backend requests.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.KnowledgeEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cropdoc_knowledge_entries",
		Help: "Entries in the loaded knowledge base.",
	})
}

// RecordDiagnosis counts one diagnosis and observes its confidence.
func (m *DiagnosisMetrics) RecordDiagnosis(status, match string, confidence float64) {
	m.Diagnoses.WithLabelValues(status, match).Inc()
	m.Confidence.Observe(confidence)
}

// RecordOperation implements Recorder.
func (m *DiagnosisMetrics) RecordOperation(operation, status string) {
	m.Operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *DiagnosisMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationTime.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *DiagnosisMetrics) RecordError(operation, errorType string) {
	m.OperationErrors.WithLabelValues(operation, errorType).Inc()
}

// ObserveBackendRequest matches the HTTP client observer signature. A zero
// status means the request never got a response.
func (m *DiagnosisMetrics) ObserveBackendRequest(host string, status int, elapsed time.Duration, _ error) {
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.BackendRequests.WithLabelValues(host, code).Inc()
	m.BackendLatency.Observe(elapsed.Seconds())
}

// SetKnowledgeEntries records the size of the knowledge base.
func (m *DiagnosisMetrics) SetKnowledgeEntries(n int) {
	m.KnowledgeEntries.Set(float64(n))
}

func (m *DiagnosisMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Diagnoses, m.Confidence, m.Operations, m.OperationTime,
		m.OperationErrors, m.BackendRequests, m.BackendLatency, m.KnowledgeEntries,
	}
}

// Describe implements prometheus.Collector.
func (m *DiagnosisMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *DiagnosisMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}
