package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RabbitMQConfig describes the MQTT listener of the RabbitMQ broker.
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string

	// MaxRetries bounds connection attempts (default 5).
	MaxRetries int
	// MaxElapsed bounds the whole retry loop (default 10s).
	MaxElapsed time.Duration

	Logger *slog.Logger
}

// BrokerURL is the tcp:// address handed to paho.
func (c *RabbitMQConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// NewRabbitMQConn connects to the broker, retrying with exponential backoff.
// The connection is closed when ctx is done.
func NewRabbitMQConn(ctx context.Context, cfg *RabbitMQConfig) (mqtt.Client, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	connAddr := cfg.BrokerURL()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "broker", connAddr, "err", err)
	})

	// Exponential backoff per le retry in caso di fail
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn("mqtt connect failed", "broker", connAddr, "err", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	log.Info("connected to MQTT broker", "broker", connAddr, "client_id", cfg.ClientID)

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Info("mqtt connection closed", "broker", connAddr)
	}()

	return client, nil
}

func CloseRabbitMQConn(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}
