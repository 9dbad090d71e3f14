package mqtt

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/observability/metrics"
)

func newTestMetrics(t *testing.T) *metrics.MQTTMetrics {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNewClientFromSettings(t *testing.T) {
	settings := &conf.Settings{}
	settings.Main.Name = "greenhouse-1"
	settings.MQTT.Broker = "tcp://broker.local:1883"
	settings.MQTT.Username = "user"
	settings.MQTT.Retain = true

	c, ok := NewClient(settings, nil).(*client)
	require.True(t, ok)
	assert.Equal(t, "greenhouse-1", c.config.ClientID, "node name is the default client id")
	assert.Equal(t, DefaultTopic, c.config.Topic)
	assert.True(t, c.config.Retain)
	assert.Equal(t, "user", c.config.Username)

	settings.MQTT.ClientID = "explicit"
	settings.MQTT.Topic = "farm/leaves"
	c = NewClient(settings, nil).(*client)
	assert.Equal(t, "explicit", c.config.ClientID)
	assert.Equal(t, "farm/leaves", c.config.Topic)
}

func TestConnectInvalidBroker(t *testing.T) {
	c := newClient(Config{Broker: "not a url"}, nil)
	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestConnectCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = "::bad"
	c := newClient(cfg, nil)

	require.Error(t, c.Connect(t.Context()))
	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
}

func TestConnectRefused(t *testing.T) {
	m := newTestMetrics(t)
	cfg := DefaultConfig()
	// nothing listens on the discard port
	cfg.Broker = "tcp://127.0.0.1:9"
	cfg.ConnectTimeout = 2 * time.Second
	c := newClient(cfg, m)

	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)
	c.Disconnect()
}

func TestPublishWhileDisconnected(t *testing.T) {
	c := newClient(DefaultConfig(), newTestMetrics(t))
	err := c.Publish(t.Context(), DefaultTopic, "{}")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := newClient(DefaultConfig(), nil)
	c.Disconnect()
	c.Disconnect()
	assert.False(t, c.IsConnected())
}
