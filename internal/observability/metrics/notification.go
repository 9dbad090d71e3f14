package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics tracks alert delivery.
type NotificationMetrics struct {
	Deliveries       *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec
	Suppressed       prometheus.Counter
	registry         *prometheus.Registry
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cropdoc_notification_deliveries_total",
		Help: "Alert deliveries by service and status.",
	}, []string{"service", "status"})
	m.DeliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cropdoc_notification_delivery_duration_seconds",
		Help:    "Alert delivery latency by service.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
	}, []string{"service"})
	m.Suppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cropdoc_notification_suppressed_total",
		Help: "Repeat alerts held back by the cooldown.",
	})

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

// RecordDelivery records one delivery attempt.
func (m *NotificationMetrics) RecordDelivery(service, status string, duration time.Duration) {
	m.Deliveries.WithLabelValues(service, status).Inc()
	m.DeliveryDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// IncrementSuppressed counts a diagnosis that did not qualify for an alert.
func (m *NotificationMetrics) IncrementSuppressed() {
	m.Suppressed.Inc()
}

// Describe implements prometheus.Collector.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Deliveries.Describe(ch)
	m.DeliveryDuration.Describe(ch)
	ch <- m.Suppressed.Desc()
}

// Collect implements prometheus.Collector.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Deliveries.Collect(ch)
	m.DeliveryDuration.Collect(ch)
	ch <- m.Suppressed
}
