package rabbitmq

import (
	"context"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message received on topic.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes and blocks until the context is cancelled.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer holds the client and the topic filter to subscribe to.
type Consumer struct {
	client  mqtt.Client
	handler Handler
	topic   string
	log     *slog.Logger
}

var _ IConsumer = (*Consumer)(nil)

// NewConsumer creates a consumer on the shared client. The handler may be
// nil and injected later with SetHandler.
func NewConsumer(client mqtt.Client, topic string, handler Handler, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{client: client, topic: topic, handler: handler, log: log}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// QosFor picks QoS 1 for topics whose messages must not be lost.
func QosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "assistant/utterance") ||
		strings.HasPrefix(t, "dashboard/recommendation") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes to the topic and dispatches to the handler.
// It blocks until the context is cancelled.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(c.topic, QosFor(c.topic), func(_ mqtt.Client, message mqtt.Message) {
		c.dispatch(message)
	})
	if token.Wait() && token.Error() != nil {
		c.log.Error("subscribe failed", "topic", c.topic, "err", token.Error())
		return
	}
	c.log.Info("subscribed", "topic", c.topic)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}

func (c *Consumer) dispatch(message mqtt.Message) {
	if c.handler == nil {
		c.log.Warn("no handler set", "topic", c.topic)
		return
	}
	if err := c.handler(message.Topic(), message); err != nil {
		c.log.Warn("error handling message", "topic", message.Topic(), "err", err)
	}
}
