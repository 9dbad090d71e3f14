package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tphakala/cropdoc/internal/events"
	"github.com/tphakala/cropdoc/internal/logger"
)

// Publisher forwards diagnosis events from the event bus to MQTT.
type Publisher struct {
	client  Client
	topic   string
	timeout time.Duration
}

// NewPublisher creates an event consumer publishing to topic.
func NewPublisher(client Client, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		client:  client,
		topic:   topic,
		timeout: DefaultConfig().PublishTimeout,
	}
}

// Name implements events.EventConsumer.
func (p *Publisher) Name() string { return "mqtt" }

// ProcessEvent implements events.EventConsumer. Events are skipped while the
// client is disconnected; the client reconnects in the background.
func (p *Publisher) ProcessEvent(ev events.DiagnosisEvent) error {
	if !p.client.IsConnected() {
		GetLogger().Debug("skipping publish, broker not connected",
			logger.String("scan_id", ev.ScanID))
		return nil
	}

	payload, err := json.Marshal(NewDiagnosisEventDTO(ev))
	if err != nil {
		return fmt.Errorf("marshal diagnosis event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.client.Publish(ctx, p.topic, string(payload))
}
