package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads to the broker.
type IPublisher interface {
	// PublishMessage sends to the publisher's default topic at QoS 0.
	PublishMessage(message interface{}) error
	// PublishTo sends to an explicit topic with the given QoS.
	PublishTo(topic string, qos byte, retained bool, message interface{}) error
	Close()
}

// Publisher holds the shared client and a default topic.
type Publisher struct {
	client mqtt.Client
	topic  string
	log    *slog.Logger
}

var _ IPublisher = (*Publisher)(nil)

// NewPublisher creates a Publisher on top of an already connected client.
func NewPublisher(client mqtt.Client, topic string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{client: client, topic: topic, log: log}
}

func (p *Publisher) PublishMessage(message interface{}) error {
	if p == nil {
		return fmt.Errorf("publisher not connected")
	}
	return p.PublishTo(p.topic, 0, false, message)
}

// PublishTo accepts string, []byte or any JSON-encodable value.
func (p *Publisher) PublishTo(topic string, qos byte, retained bool, message interface{}) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher not connected")
	}
	payload, err := encodePayload(message)
	if err != nil {
		return err
	}
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	p.log.Debug("message published", "topic", topic, "qos", qos, "bytes", len(payload))
	return nil
}

// Close disconnects the shared client.
func (p *Publisher) Close() {
	if p != nil && p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.log.Info("MQTT client disconnected")
	}
}

func encodePayload(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("invalid message format: %w", err)
		}
		return b, nil
	}
}
