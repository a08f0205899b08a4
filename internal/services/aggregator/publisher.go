package aggregator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

// TopicFor is the MQTT topic recommendations of (scope, category) go to.
func TopicFor(scope string, c entities.Category) string {
	return fmt.Sprintf("dashboard/recommendation/%s/%s", scope, c)
}

// Recommender turns snapshot updates into RecommendationEvents.
type Recommender struct {
	publisher rabbitmq.IPublisher
	log       *slog.Logger
	now       func() time.Time
}

func NewRecommender(publisher rabbitmq.IPublisher, log *slog.Logger) *Recommender {
	if log == nil {
		log = slog.Default()
	}
	return &Recommender{publisher: publisher, log: log, now: time.Now}
}

// Event builds the recommendation for a snapshot. ok is false for
// non-seating categories or when no record is usable.
func Event(s entities.Snapshot, now time.Time) (messages.RecommendationEvent, bool) {
	sum, ok := Summarize(s)
	if !ok || sum.Best == nil {
		return messages.RecommendationEvent{}, false
	}
	return messages.RecommendationEvent{
		Scope:     s.Scope,
		Category:  s.Category,
		Seq:       s.Seq,
		Best:      sum.Best.ResourceRecord,
		Score:     sum.Best.Score,
		Tier:      string(sum.Best.Tier),
		Badge:     sum.Best.Badge,
		Records:   len(s.Resources),
		Skipped:   sum.Skipped,
		Timestamp: now,
	}, true
}

// OnSnapshot publishes the recommendation for s. Suitable as a poller
// OnUpdate hook; failures are logged only.
func (r *Recommender) OnSnapshot(s entities.Snapshot) {
	if !s.Category.IsSeating() {
		return
	}
	evt, ok := Event(s, r.now())
	if !ok {
		r.log.Debug("no best pick, recommendation suppressed", "category", string(s.Category), "scope", s.Scope)
		return
	}
	topic := TopicFor(s.Scope, s.Category)
	if err := r.publisher.PublishTo(topic, rabbitmq.QosFor(topic), true, evt); err != nil {
		r.log.Warn("publish recommendation failed", "topic", topic, "err", err)
		return
	}
	r.log.Info("recommendation published", "topic", topic, "best", evt.Best.ID, "tier", evt.Tier, "seq", evt.Seq)
}
