// Package persistence ingests campus readings from MQTT into InfluxDB and
// keeps the last snapshot per (scope, category) for its HTTP API.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
)

// MeasurementPrefix matches what the influx source reads back.
const MeasurementPrefix = "campus_"

// Configurazione Influx
type InfluxConfig struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func (c InfluxConfig) Validate() error {
	if c.InfluxURL == "" || c.InfluxToken == "" || c.InfluxOrg == "" || c.InfluxBucket == "" {
		return errors.New("influx config incomplete")
	}
	return nil
}

// PointWriter is the part of api.WriteAPIBlocking the service needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type cacheKey struct {
	scope    string
	category model.Category
}

type Service struct {
	consumer rabbitmq.IConsumer
	writer   PointWriter
	log      *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	latest map[cacheKey]model.Snapshot
	writes uint64
}

// NewService wires consumer to writer. writer may be nil, in which case
// readings are only cached.
func NewService(consumer rabbitmq.IConsumer, writer PointWriter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		consumer: consumer,
		writer:   writer,
		log:      log,
		now:      time.Now,
		latest:   make(map[cacheKey]model.Snapshot),
	}
	consumer.SetHandler(s.handle)
	return s
}

// NewInfluxWriter opens the blocking write API for cfg. The returned close
// function releases the client.
func NewInfluxWriter(cfg InfluxConfig) (PointWriter, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket), client.Close, nil
}

// Start consumes until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handle(topic string, msg mqtt.Message) error {
	var snap model.Snapshot
	if err := json.Unmarshal(msg.Payload(), &snap); err != nil {
		s.log.Warn("invalid snapshot", "topic", topic, "err", err)
		return nil // non bloccare lo stream
	}
	scope, cat := scopeAndCategory(topic)
	if snap.Scope == "" {
		snap.Scope = scope
	}
	if snap.Category == "" {
		snap.Category = cat
	}
	c, ok := entities.ParseCategory(string(snap.Category))
	if !ok || snap.Scope == "" {
		s.log.Warn("snapshot without category or scope", "topic", topic)
		return nil
	}
	snap.Category = c
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.now()
	}

	s.mu.Lock()
	s.latest[cacheKey{snap.Scope, snap.Category}] = snap
	s.mu.Unlock()

	if s.writer == nil {
		return nil
	}
	points := PointsFor(snap, snap.FetchedAt)
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		s.log.Error("influx write failed", "category", snap.Category, "scope", snap.Scope, "err", err)
		return fmt.Errorf("write %s/%s: %w", snap.Scope, snap.Category, err)
	}
	s.mu.Lock()
	s.writes += uint64(len(points))
	s.mu.Unlock()
	s.log.Debug("wrote points", "category", snap.Category, "scope", snap.Scope, "points", len(points))
	return nil
}

// Latest returns the cached snapshot for scope and category.
func (s *Service) Latest(scope string, c model.Category) (model.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[cacheKey{scope, c}]
	if !ok {
		return model.Snapshot{}, false
	}
	return snap.Clone(), true
}

// Written is the number of points written so far.
func (s *Service) Written() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// scopeAndCategory parses campus/readings/{scope}/{category}.
func scopeAndCategory(topic string) (string, model.Category) {
	rest, ok := strings.CutPrefix(topic, strings.TrimSuffix(messages.ReadingsFilter, "#"))
	if !ok {
		return "", ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], model.Category(parts[1])
}

// PointsFor converts a snapshot to one point per record. Tags and fields use
// the column names the tolerant entity decoders accept, so the influx source
// can read the rows back.
func PointsFor(s model.Snapshot, at time.Time) []*write.Point {
	measurement := MeasurementPrefix + string(s.Category)
	var out []*write.Point
	add := func(tags map[string]string, fields map[string]interface{}) {
		tags["scope"] = s.Scope
		out = append(out, influxdb2.NewPoint(measurement, tags, fields, at))
	}
	switch s.Category {
	case model.CategoryParking, model.CategoryLibrary, model.CategoryFood:
		for _, r := range s.Resources {
			add(map[string]string{"id": r.ID, "name": r.Name, "category": string(s.Category)},
				map[string]interface{}{
					"total_capacity": r.TotalCapacity,
					"available":      r.Available,
					"queue_length":   r.QueueLength,
				})
		}
	case model.CategoryElevator:
		for _, e := range s.Elevators {
			add(map[string]string{"id": e.ID, "building": e.Building, "label": e.Label},
				map[string]interface{}{
					"current_floor":  e.CurrentFloor,
					"occupancy":      e.Occupancy,
					"capacity":       e.Capacity,
					"queue_length":   e.QueueLength,
					"estimated_wait": e.EstimatedWait,
					"direction":      string(e.Direction),
				})
		}
	case model.CategoryDestination:
		for _, d := range s.Destinations {
			add(map[string]string{"id": d.Label, "building": d.Building, "label": d.Label},
				map[string]interface{}{"floor": d.Floor})
		}
	case model.CategoryCommute:
		for _, c := range s.Commute {
			add(map[string]string{"id": c.POIID, "name": c.Name},
				map[string]interface{}{"eta_minutes": c.ETAMinutes, "level": string(c.Level)})
		}
	case model.CategoryClassroom:
		for _, c := range s.Classrooms {
			add(map[string]string{"id": c.RoomNumber, "building": c.Building, "room_number": c.RoomNumber},
				map[string]interface{}{"floor": c.Floor, "capacity": c.Capacity, "is_available": c.IsAvailable})
		}
	}
	return out
}
