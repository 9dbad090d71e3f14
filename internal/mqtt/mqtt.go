// Package mqtt publishes diagnosis events to an MQTT broker. Home automation
// and farm dashboards subscribe to the topic to react to new scans.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/cropdoc/internal/logger"
)

// DefaultTopic receives diagnosis events unless mqtt.topic overrides it.
const DefaultTopic = "cropdoc/diagnoses"

// Client is the broker connection used by Publisher.
type Client interface {
	Connect(ctx context.Context) error
	// Publish sends payload at QoS 0. It fails fast when not connected.
	Publish(ctx context.Context, topic string, payload string) error
	IsConnected() bool
	// Disconnect stops reconnect attempts and closes the connection.
	Disconnect()
}

// Config tunes the broker connection. Credentials and topic come from
// conf.MQTTSettings, the timings from DefaultConfig.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	Retain   bool

	ReconnectCooldown time.Duration // minimum gap between connect attempts
	ReconnectDelay    time.Duration // wait before reconnecting after a lost connection
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration // quiesce time granted to in-flight messages
}

// DefaultConfig returns the timings used in production.
func DefaultConfig() Config {
	return Config{
		Topic:             DefaultTopic,
		ReconnectCooldown: 5 * time.Second,
		ReconnectDelay:    time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
