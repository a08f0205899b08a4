package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/auth"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/dedup"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

const (
	UtteranceTopic   = "assistant/utterance/#"
	replyTopicPrefix = "assistant/reply/"
)

// ReplyTopic is where the reply for a session is published.
func ReplyTopic(session string) string {
	return replyTopicPrefix + session
}

type BridgeConfig struct {
	Consumer  rabbitmq.IConsumer
	Publisher rabbitmq.IPublisher
	Router    *Router
	Auth      auth.Authenticator // nil: every session is signed out
	Dedup     *dedup.Deduper     // defaults to dedup.New(0, 0)
	Logger    *slog.Logger
}

// Bridge connects the speech front-end to the Router over MQTT: recognised
// text arrives on assistant/utterance/{session}, replies go back on
// assistant/reply/{session}.
type Bridge struct {
	consumer  rabbitmq.IConsumer
	publisher rabbitmq.IPublisher
	router    *Router
	auth      auth.Authenticator
	seen      *dedup.Deduper
	log       *slog.Logger
	now       func() time.Time
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dedup == nil {
		cfg.Dedup = dedup.New(0, 0)
	}
	b := &Bridge{
		consumer:  cfg.Consumer,
		publisher: cfg.Publisher,
		router:    cfg.Router,
		auth:      cfg.Auth,
		seen:      cfg.Dedup,
		log:       cfg.Logger,
		now:       time.Now,
	}
	b.consumer.SetHandler(b.handle)
	return b
}

// Start blocks until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) {
	b.log.Info("assistant bridge started", "topic", UtteranceTopic)
	b.consumer.ConsumeMessage(ctx)
}

func (b *Bridge) handle(topic string, m mqtt.Message) error {
	var ev messages.UtteranceEvent
	if err := json.Unmarshal(m.Payload(), &ev); err != nil {
		return fmt.Errorf("invalid utterance payload: %w", err)
	}
	if ev.SessionID == "" {
		ev.SessionID = sessionFromTopic(topic)
	}
	if ev.SessionID == "" {
		return fmt.Errorf("utterance without session on %s", topic)
	}

	// QoS 1 may redeliver. With an utterance id any repeat is a redelivery;
	// without one only the broker's DUP flag tells a redelivery apart from a
	// user asking the same thing again.
	key := dedup.KeyOf(ev.SessionID, m.Payload())
	if ev.UtteranceID != "" {
		key = dedup.KeyOf(ev.SessionID, []byte(ev.UtteranceID))
	}
	if fresh := b.seen.ShouldProcess(key); !fresh && (ev.UtteranceID != "" || m.Duplicate()) {
		b.log.Debug("duplicate utterance dropped", "session", ev.SessionID, "utterance", ev.UtteranceID)
		return nil
	}

	var user *entities.User
	if b.auth != nil {
		if u, ok := b.auth.Authenticate(ev.Token); ok {
			user = &u
		}
	}

	ctx := context.Background()
	reply := b.router.Respond(ctx, user, ev.Text)

	out := messages.AssistantReplyEvent{
		ReplyID:   uuid.NewString(),
		SessionID: ev.SessionID,
		Intent:    string(reply.Intent),
		Text:      reply.Text,
		Timestamp: b.now().UTC(),
	}
	topicOut := ReplyTopic(ev.SessionID)
	if err := b.publisher.PublishTo(topicOut, rabbitmq.QosFor(topicOut), false, out); err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	b.log.Info("assistant replied", "session", ev.SessionID, "intent", reply.Intent)
	return nil
}

func sessionFromTopic(topic string) string {
	rest, ok := strings.CutPrefix(topic, "assistant/utterance/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
