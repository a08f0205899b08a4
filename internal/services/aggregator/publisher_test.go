package aggregator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq/mqtttest"
)

func TestRecommenderPublishesBestPick(t *testing.T) {
	fc := mqtttest.NewClient()
	r := NewRecommender(rabbitmq.NewPublisher(fc, "", logging.Discard()), logging.Discard())
	now := time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.OnSnapshot(entities.Snapshot{
		Category:  entities.CategoryParking,
		Scope:     "uni-a",
		Seq:       3,
		Resources: []entities.ResourceRecord{rec("A", 100, 80, 0), rec("B", 50, 10, 0)},
	})

	pubs := fc.Published()
	if len(pubs) != 1 {
		t.Fatalf("published %d messages", len(pubs))
	}
	if pubs[0].Topic != "dashboard/recommendation/uni-a/parking" || pubs[0].Qos != 1 || !pubs[0].Retained {
		t.Fatalf("publish = %+v", pubs[0])
	}
	var evt messages.RecommendationEvent
	if err := json.Unmarshal(pubs[0].Payload, &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt.Best.ID != "A" || evt.Seq != 3 || evt.Tier != "plenty" || evt.Badge != "Plenty Available" || evt.Records != 2 {
		t.Fatalf("event = %+v", evt)
	}
	if !evt.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v", evt.Timestamp)
	}
}

func TestRecommenderSuppressesWithoutBestPick(t *testing.T) {
	fc := mqtttest.NewClient()
	r := NewRecommender(rabbitmq.NewPublisher(fc, "", logging.Discard()), logging.Discard())

	r.OnSnapshot(entities.Snapshot{Category: entities.CategoryLibrary, Scope: "uni-a"})
	r.OnSnapshot(entities.Snapshot{Category: entities.CategoryLibrary, Scope: "uni-a",
		Resources: []entities.ResourceRecord{rec("zero", 0, 0, 0)}})
	r.OnSnapshot(entities.Snapshot{Category: entities.CategoryElevator, Scope: "uni-a",
		Elevators: []entities.Elevator{{ID: "e1", Capacity: 10}}})

	if n := len(fc.Published()); n != 0 {
		t.Fatalf("published %d messages, want none", n)
	}
}
