package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks the broker connection and event delivery.
type MQTTMetrics struct {
	connected      prometheus.Gauge
	lastConnect    prometheus.Gauge
	delivered      prometheus.Counter
	errors         prometheus.Counter
	reconnects     prometheus.Counter
	messageSize    prometheus.Histogram
	PublishLatency prometheus.Histogram
}

// NewMQTTMetrics creates and registers MQTT metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cropdoc_mqtt_connection_status",
			Help: "1 while connected to the broker.",
		}),
		lastConnect: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cropdoc_mqtt_last_connect_time_seconds",
			Help: "Unix time of the last successful connection.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cropdoc_mqtt_messages_delivered_total",
			Help: "Diagnosis events delivered to the broker.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cropdoc_mqtt_errors_total",
			Help: "Failed connects and publishes.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cropdoc_mqtt_reconnect_attempts_total",
			Help: "Reconnect attempts after a lost connection.",
		}),
		messageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cropdoc_mqtt_message_size_bytes",
			Help:    "Size of published event payloads.",
			Buckets: prometheus.ExponentialBuckets(256, 2, 8),
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cropdoc_mqtt_publish_latency_seconds",
			Help:    "Time from publish to broker acknowledgement.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateConnectionStatus sets the connection gauge, and the connect time
// when connected.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if !connected {
		m.connected.Set(0)
		return
	}
	m.connected.Set(1)
	m.lastConnect.SetToCurrentTime()
}

// RecordPublish records a delivered event of size bytes that was published at start.
func (m *MQTTMetrics) RecordPublish(start time.Time, size int) {
	m.PublishLatency.Observe(time.Since(start).Seconds())
	m.delivered.Inc()
	m.messageSize.Observe(float64(size))
}

func (m *MQTTMetrics) IncrementErrors()            { m.errors.Inc() }
func (m *MQTTMetrics) IncrementReconnectAttempts() { m.reconnects.Inc() }

func (m *MQTTMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.connected, m.lastConnect, m.delivered, m.errors,
		m.reconnects, m.messageSize, m.PublishLatency,
	}
}

// Describe implements prometheus.Collector.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}
