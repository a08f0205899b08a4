package sensor_simulator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/services/poller"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq/mqtttest"
)

func TestPublishOnce(t *testing.T) {
	src := poller.SourceFunc(func(_ context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
		switch {
		case c == entities.CategoryParking && scope == "uni-a":
			return entities.Snapshot{Category: c, Scope: scope, Resources: []entities.ResourceRecord{
				{ID: "lot-a", Name: "North Lot", TotalCapacity: 100, Available: 42},
			}}, nil
		case c == entities.CategoryElevator:
			return entities.Snapshot{}, errors.New("lift feed down")
		}
		return entities.Snapshot{Category: c, Scope: scope}, nil
	})
	fc := mqtttest.NewClient()
	sim := NewSensorSimulator(src, rabbitmq.NewPublisher(fc, "", logging.Discard()), []string{"uni-a", "uni-b"}, logging.Discard())

	if n := sim.PublishOnce(context.Background()); n != 1 {
		t.Fatalf("published %d snapshots, want 1", n)
	}
	pub := fc.Published()
	if len(pub) != 1 || pub[0].Topic != "campus/readings/uni-a/parking" {
		t.Fatalf("published = %+v", pub)
	}
	var snap entities.Snapshot
	if err := json.Unmarshal(pub[0].Payload, &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Resources) != 1 || snap.Resources[0].Available != 42 || snap.Resources[0].Name != "North Lot" {
		t.Fatalf("payload = %+v", snap)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	fc := mqtttest.NewClient()
	src := poller.SourceFunc(func(_ context.Context, c entities.Category, scope string) (entities.Snapshot, error) {
		return entities.Snapshot{}, nil
	})
	sim := NewSensorSimulator(src, rabbitmq.NewPublisher(fc, "", logging.Discard()), []string{"uni-a"}, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim.Start(ctx, time.Hour)
	if fc.IsConnected() {
		t.Fatalf("publisher not closed on shutdown")
	}
}
