package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/logging"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/campus_dashboard/pkg/rabbitmq/mqtttest"
)

type fakeWriter struct {
	mu     sync.Mutex
	points []*write.Point
	err    error
}

func (f *fakeWriter) WritePoint(_ context.Context, p ...*write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, p...)
	return nil
}

func (f *fakeWriter) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.points))
	for i, p := range f.points {
		out[i] = write.PointToLineProtocol(p, time.Second)
	}
	return out
}

var at = time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)

func TestPointsForResources(t *testing.T) {
	pts := PointsFor(entities.Snapshot{
		Category: entities.CategoryFood,
		Scope:    "uni-a",
		Resources: []entities.ResourceRecord{
			{ID: "stall-x", Name: "Noodle Bar", TotalCapacity: 20, Available: 15, QueueLength: 2},
		},
	}, at)
	if len(pts) != 1 {
		t.Fatalf("points = %d", len(pts))
	}
	line := write.PointToLineProtocol(pts[0], time.Second)
	for _, want := range []string{
		"campus_food,", "id=stall-x", `name=Noodle\ Bar`, "scope=uni-a",
		"available=15i", "queue_length=2i", "total_capacity=20i", " 1725278400",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestPointsForOtherCategories(t *testing.T) {
	cases := []struct {
		snap entities.Snapshot
		want []string
	}{
		{entities.Snapshot{Category: entities.CategoryElevator, Scope: "uni-a", Elevators: []entities.Elevator{
			{ID: "e1", Building: "B1", Label: "L1", CurrentFloor: 3, Capacity: 10, Direction: entities.DirectionUp},
		}}, []string{"campus_elevator,", "building=B1", "label=L1", "current_floor=3i", "direction=\"up\""}},
		{entities.Snapshot{Category: entities.CategoryDestination, Scope: "uni-a", Destinations: []entities.Destination{
			{Building: "B1", Floor: 10, Label: "C1001"},
		}}, []string{"campus_destination,", "id=C1001", "floor=10i"}},
		{entities.Snapshot{Category: entities.CategoryCommute, Scope: "uni-a", Commute: []entities.CommuteReading{
			{POIID: "poi-1", Name: "Ring Road", ETAMinutes: 12.5, Level: entities.TrafficHeavy},
		}}, []string{"campus_commute,", "id=poi-1", "eta_minutes=12.5", "level="}},
		{entities.Snapshot{Category: entities.CategoryClassroom, Scope: "uni-a", Classrooms: []entities.Classroom{
			{Building: "C", Floor: 2, RoomNumber: "C204", Capacity: 40, IsAvailable: true},
		}}, []string{"campus_classroom,", "room_number=C204", "capacity=40i", "is_available=true"}},
	}
	for _, tc := range cases {
		pts := PointsFor(tc.snap, at)
		if len(pts) != 1 {
			t.Fatalf("%s: points = %d", tc.snap.Category, len(pts))
		}
		line := write.PointToLineProtocol(pts[0], time.Second)
		for _, want := range tc.want {
			if !strings.Contains(line, want) {
				t.Errorf("%s: line %q missing %q", tc.snap.Category, line, want)
			}
		}
	}
}

func startService(t *testing.T, w PointWriter) (*Service, *mqtttest.Client) {
	t.Helper()
	fc := mqtttest.NewClient()
	svc := NewService(rabbitmq.NewConsumer(fc, messages.ReadingsFilter, nil, logging.Discard()), w, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for !fc.Subscribed(messages.ReadingsFilter) {
		if time.Now().After(deadline) {
			t.Fatalf("consumer never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return svc, fc
}

func TestIngestWritesAndCaches(t *testing.T) {
	fw := &fakeWriter{}
	svc, fc := startService(t, fw)

	// Scope and category come from the topic when the payload omits them.
	payload := []byte(`{"fetched_at":"2024-09-02T12:00:00Z","resources":[
		{"id":"lot-a","name":"North Lot","total_capacity":100,"available":80},
		{"id":"lot-b","name":"South Lot","total_capacity":50,"available":10}]}`)
	fc.Deliver(messages.ReadingsTopic("uni-a", entities.CategoryParking), payload)

	lines := fw.lines()
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "campus_parking,") {
		t.Fatalf("lines = %q", lines)
	}
	if svc.Written() != 2 {
		t.Fatalf("written = %d", svc.Written())
	}
	snap, ok := svc.Latest("uni-a", entities.CategoryParking)
	if !ok || len(snap.Resources) != 2 || snap.Scope != "uni-a" {
		t.Fatalf("cache = %+v, %v", snap, ok)
	}
}

func TestIngestSkipsBadInput(t *testing.T) {
	fw := &fakeWriter{}
	svc, fc := startService(t, fw)

	fc.Deliver("campus/readings/uni-a/parking", []byte(`not json`))
	fc.Deliver("campus/readings/uni-a/weather", []byte(`{}`))
	fc.Deliver("campus/readings/uni-a", []byte(`{"resources":[]}`))
	if len(fw.lines()) != 0 || svc.Written() != 0 {
		t.Fatalf("bad input reached influx")
	}
	if _, ok := svc.Latest("uni-a", entities.CategoryParking); ok {
		t.Fatalf("bad input cached")
	}
}

func TestIngestCachesWhenWriteFails(t *testing.T) {
	fw := &fakeWriter{err: errors.New("influx down")}
	svc, fc := startService(t, fw)
	fc.Deliver(messages.ReadingsTopic("uni-a", entities.CategoryLibrary),
		[]byte(`{"resources":[{"id":"z1","name":"Quiet","total_capacity":10,"available":4}]}`))
	if _, ok := svc.Latest("uni-a", entities.CategoryLibrary); !ok {
		t.Fatalf("snapshot not cached")
	}
	if svc.Written() != 0 {
		t.Fatalf("written = %d", svc.Written())
	}
}

func TestRouter(t *testing.T) {
	svc, fc := startService(t, nil)
	srv := httptest.NewServer(NewRouter(svc))
	defer srv.Close()

	get := func(path string) *http.Response {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	if resp := get("/readyz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz before data = %d", resp.StatusCode)
	}
	fc.Deliver(messages.ReadingsTopic("uni-a", entities.CategoryFood),
		[]byte(`{"resources":[{"id":"stall-x","name":"Noodle Bar","total_capacity":20,"available":15}]}`))

	if resp := get("/readyz"); resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz = %d", resp.StatusCode)
	}
	resp := get("/readings/food?scope=uni-a")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Data-Source") != "cache" {
		t.Fatalf("readings = %d", resp.StatusCode)
	}
	var snap entities.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Resources) != 1 || snap.Resources[0].Name != "Noodle Bar" {
		t.Fatalf("snapshot = %+v", snap)
	}

	for path, want := range map[string]int{
		"/readings/food":                http.StatusBadRequest,
		"/readings/weather?scope=a":     http.StatusNotFound,
		"/readings/parking?scope=uni-a": http.StatusNotFound,
		"/healthz":                      http.StatusOK,
	} {
		if resp := get(path); resp.StatusCode != want {
			t.Errorf("%s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}
