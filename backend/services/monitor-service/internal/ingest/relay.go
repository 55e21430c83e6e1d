package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/docstore"
)

// ErrInvalidRelay is returned for relay numbers other than 1 and 2.
var ErrInvalidRelay = errors.New("ingest: relay must be 1 or 2")

// RelayQoS is the delivery guarantee for relay commands.
const RelayQoS byte = 1

// Publisher sends a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

// RelayTopics names the outbound relay command topics.
type RelayTopics struct {
	Relay1 string `yaml:"relay1" env:"RELAY1_TOPIC"`
	Relay2 string `yaml:"relay2" env:"RELAY2_TOPIC"`
}

// RelayCommander switches relays over MQTT and mirrors the new state.
type RelayCommander struct {
	topics    RelayTopics
	publisher Publisher
	docs      docstore.Store
	logger    *zap.Logger
}

// NewRelayCommander ctor.
func NewRelayCommander(topics RelayTopics, publisher Publisher, docs docstore.Store, logger *zap.Logger) *RelayCommander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayCommander{topics: topics, publisher: publisher, docs: docs, logger: logger}
}

// RelayPath is the document holding a relay's last commanded state.
func RelayPath(relay int) string {
	return fmt.Sprintf("status/relay%d/ON", relay)
}

// PublishRelayCommand sends ON or OFF to the relay topic and, once the broker
// accepted it, records the state at status/relay<N>/ON.
func (c *RelayCommander) PublishRelayCommand(ctx context.Context, relay int, on bool) error {
	var topic string
	switch relay {
	case 1:
		topic = c.topics.Relay1
	case 2:
		topic = c.topics.Relay2
	default:
		return ErrInvalidRelay
	}
	if topic == "" {
		return fmt.Errorf("ingest: relay%d topic not configured", relay)
	}

	payload := "OFF"
	if on {
		payload = "ON"
	}
	if err := c.publisher.Publish(ctx, topic, RelayQoS, false, []byte(payload)); err != nil {
		return fmt.Errorf("publish relay command: %w", err)
	}
	c.logger.Info("relay command published", zap.String("topic", topic), zap.String("state", payload))

	if err := c.docs.Set(ctx, RelayPath(relay), on); err != nil {
		return fmt.Errorf("mirror relay state: %w", err)
	}
	return nil
}
