// Package mqtttest provides an in-memory mqtt.Client for tests.
package mqtttest

import (
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Published is one captured Publish call.
type Published struct {
	Topic    string
	Qos      byte
	Retained bool
	Payload  []byte
}

// Client records publishes and routes Deliver calls to matching subscriptions.
type Client struct {
	mu        sync.Mutex
	connected bool
	subs      map[string]mqtt.MessageHandler
	published []Published

	// PublishErr, when set, is returned by every publish token.
	PublishErr error
}

var _ mqtt.Client = (*Client)(nil)

func NewClient() *Client {
	return &Client{connected: true, subs: make(map[string]mqtt.MessageHandler)}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) IsConnectionOpen() bool { return c.IsConnected() }

func (c *Client) Connect() mqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return doneToken{}
}

func (c *Client) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PublishErr != nil {
		return doneToken{err: c.PublishErr}
	}
	c.published = append(c.published, Published{Topic: topic, Qos: qos, Retained: retained, Payload: b})
	return doneToken{}
}

func (c *Client) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.subs[topic] = callback
	c.mu.Unlock()
	return doneToken{}
}

func (c *Client) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for t := range filters {
		c.Subscribe(t, 0, callback)
	}
	return doneToken{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()
	return doneToken{}
}

func (c *Client) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.Subscribe(topic, 0, callback)
}

func (c *Client) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

// Subscribed reports whether some filter is currently registered.
func (c *Client) Subscribed(filter string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[filter]
	return ok
}

// Deliver hands a message to every subscription whose filter matches topic.
// It returns the number of handlers invoked.
func (c *Client) Deliver(topic string, payload []byte) int {
	return c.deliver(&Message{TopicName: topic, Body: payload})
}

// Redeliver is Deliver with the DUP flag set, as a broker resending an
// unacknowledged QoS 1 message does.
func (c *Client) Redeliver(topic string, payload []byte) int {
	return c.deliver(&Message{TopicName: topic, Body: payload, Dup: true})
}

func (c *Client) deliver(msg *Message) int {
	topic := msg.TopicName
	c.mu.Lock()
	var hs []mqtt.MessageHandler
	for f, h := range c.subs {
		if Match(f, topic) {
			hs = append(hs, h)
		}
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(c, msg)
	}
	return len(hs)
}

// Published returns a copy of everything published so far.
func (c *Client) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Published, len(c.published))
	copy(out, c.published)
	return out
}

// Match implements MQTT topic filter matching for + and #.
func Match(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}

// Message is a minimal mqtt.Message.
type Message struct {
	TopicName string
	Body      []byte
	Dup       bool
}

var _ mqtt.Message = (*Message)(nil)

func (m *Message) Duplicate() bool   { return m.Dup }
func (m *Message) Qos() byte         { return 0 }
func (m *Message) Retained() bool    { return false }
func (m *Message) Topic() string     { return m.TopicName }
func (m *Message) MessageID() uint16 { return 0 }
func (m *Message) Payload() []byte   { return m.Body }
func (m *Message) Ack()              {}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }
