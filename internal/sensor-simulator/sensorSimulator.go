// Package sensor_simulator publishes simulated campus readings on MQTT, one
// snapshot per (scope, category) per tick.
package sensor_simulator

import (
	"context"
	"log/slog"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

// FeedCategories are the live categories a campus feed reports. The
// destination catalog is static and not republished.
var FeedCategories = []entities.Category{
	entities.CategoryParking,
	entities.CategoryLibrary,
	entities.CategoryFood,
	entities.CategoryElevator,
	entities.CategoryCommute,
	entities.CategoryClassroom,
}

type SensorSimulator struct {
	source     poller.Source
	publisher  rabbitmq.IPublisher
	scopes     []string
	categories []entities.Category
	log        *slog.Logger
}

// NewSensorSimulator publishes what src returns. src is normally a
// source.Simulated over the fixtures file.
func NewSensorSimulator(src poller.Source, publisher rabbitmq.IPublisher, scopes []string, log *slog.Logger) *SensorSimulator {
	if log == nil {
		log = slog.Default()
	}
	return &SensorSimulator{
		source:     src,
		publisher:  publisher,
		scopes:     scopes,
		categories: FeedCategories,
		log:        log,
	}
}

// PublishOnce fetches and publishes every (scope, category) and returns how
// many snapshots went out. Empty snapshots are skipped.
func (s *SensorSimulator) PublishOnce(ctx context.Context) int {
	sent := 0
	for _, scope := range s.scopes {
		for _, c := range s.categories {
			snap, err := s.source.Fetch(ctx, c, scope)
			if err != nil {
				s.log.Warn("simulated fetch failed", "category", c, "scope", scope, "err", err)
				continue
			}
			if snap.Empty() {
				continue
			}
			topic := messages.ReadingsTopic(scope, c)
			if err := s.publisher.PublishTo(topic, rabbitmq.QosFor(topic), false, snap); err != nil {
				s.log.Warn("publish error", "topic", topic, "err", err)
				continue
			}
			sent++
		}
	}
	s.log.Debug("feed published", "snapshots", sent)
	return sent
}

// Start publishes immediately and then every interval until ctx is done.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	s.PublishOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-time.After(interval):
			s.PublishOnce(ctx)
		}
	}
}
